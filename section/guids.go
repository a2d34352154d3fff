package section

import "github.com/arloliu/cper/guid"

// Section type GUIDs.
var (
	GenericProcessorGUID = guid.MustParse("9876CCAD-47B4-4BDB-B65E-16F193C4F3DB")
	IA32X64GUID          = guid.MustParse("DC3EA0B0-A144-4797-B95B-53FA242B6E1D")
	IPFGUID              = guid.MustParse("E429FAF1-3CB7-11D4-BCA7-0080C73C8881")
	ARMGUID              = guid.MustParse("E19E3D16-BC11-11E4-9CAA-C2051D5D46B0")
	MemoryGUID           = guid.MustParse("A5BC1114-6F64-4EDE-B863-3E83ED7C83B1")
	Memory2GUID          = guid.MustParse("61EC04FC-48E6-D813-25C9-8DAA44750B12")
	PCIeGUID             = guid.MustParse("D995E954-BBC1-430F-AD91-B44DCB3C6F35")
	FirmwareGUID         = guid.MustParse("81212A96-09ED-4996-9471-8D729C8E69ED")
	PCIBusGUID           = guid.MustParse("C5753963-3B84-4095-BF78-EDDAD3F9C9DD")
	PCIDeviceGUID        = guid.MustParse("EB5E4685-CA66-4769-B6A2-26068B001326")
	DMArGenericGUID      = guid.MustParse("5B51FEF7-C79D-4434-8F1B-AA62DE3E2C64")
	DMArVTdGUID          = guid.MustParse("71761D37-32B2-45CD-A7D0-B0FEDD93E8CF")
	DMArIOMMUGUID        = guid.MustParse("036F84E1-7F37-428C-A79E-575FDFAA84EC")
	CCIXPERGUID          = guid.MustParse("91335EF6-EBFB-4478-A6A6-88B728CF75D7")
	CXLProtocolGUID      = guid.MustParse("80B9EFB4-52B5-4DE3-A777-68784B771048")

	CXLGeneralMediaGUID   = guid.MustParse("FBCD0A77-C260-417F-85A9-088B1621EBA6")
	CXLDRAMGUID           = guid.MustParse("601DCBB3-9C06-4EAB-B8AF-4E9BFB5C9624")
	CXLMemoryModuleGUID   = guid.MustParse("FE927475-DD59-4339-A586-79BAB113B774")
	CXLPhysicalSwitchGUID = guid.MustParse("77CF9271-9C02-470B-9FE4-BC7B75F2DA97")
	CXLVirtualSwitchGUID  = guid.MustParse("40D26425-3396-4C4D-A5DA-3D47263AF425")
	CXLMLDPortGUID        = guid.MustParse("8DC44363-0C96-4710-B7BF-04BB99534C3F")
)

// IA32/X64 error structure types.
var (
	IA32CacheCheckGUID = guid.MustParse("A55701F5-E3EF-43DE-AC72-249B573FAD2C")
	IA32TLBCheckGUID   = guid.MustParse("FC06B535-5E1F-4562-9F25-0A3B9ADB63C3")
	IA32BusCheckGUID   = guid.MustParse("1CF3F8B3-C5B1-49A2-AA59-5EEF92FFA63C")
	IA32MSCheckGUID    = guid.MustParse("48AB7F57-DC34-4F6C-A7D3-B0B5B0A74314")
)

// CXLComponentGUIDs lists every component event type handled by the CXL
// component codec.
var CXLComponentGUIDs = []guid.GUID{
	CXLGeneralMediaGUID,
	CXLDRAMGUID,
	CXLMemoryModuleGUID,
	CXLPhysicalSwitchGUID,
	CXLVirtualSwitchGUID,
	CXLMLDPortGUID,
}

// Notification type GUIDs for the record header.
var (
	NotifyCMC          = guid.MustParse("2DCE8BB1-BDD7-450E-B9AD-9CF4EBD4F890")
	NotifyCPE          = guid.MustParse("4E292F96-D843-4A55-A8C2-D481F27EBEEE")
	NotifyMCE          = guid.MustParse("E8F56FFE-919C-4CC5-BA88-65ABE14913BB")
	NotifyPCIe         = guid.MustParse("CF93C01F-1A16-4DFC-B8BC-9C4DAF67C104")
	NotifyINIT         = guid.MustParse("CC5263E8-9308-454A-89D0-340BD39BC98E")
	NotifyNMI          = guid.MustParse("5BAD89FF-B7E6-42C9-814A-CF2485D6E98A")
	NotifyBoot         = guid.MustParse("3D61A466-AB40-409A-A698-F362D464B38F")
	NotifyDMAr         = guid.MustParse("667DD791-C6B3-4C27-8A6B-0F8E722DEB41")
	NotifySEA          = guid.MustParse("9A78788A-BBE8-11E4-809E-67611E5D46B0")
	NotifySEI          = guid.MustParse("5C284C81-B0AE-4E87-A322-B04C85624323")
	NotifyPEI          = guid.MustParse("09A9D5AC-5204-4214-96E5-94992E752BCD")
	NotifyCXLComponent = guid.MustParse("69293BC9-41DF-49A3-B4BD-4FB0DB3041F6")
)

var notificationNames = map[guid.GUID]string{
	NotifyCMC:          "CMC",
	NotifyCPE:          "CPE",
	NotifyMCE:          "MCE",
	NotifyPCIe:         "PCIe",
	NotifyINIT:         "INIT",
	NotifyNMI:          "NMI",
	NotifyBoot:         "Boot",
	NotifyDMAr:         "DMAr",
	NotifySEA:          "SEA",
	NotifySEI:          "SEI",
	NotifyPEI:          "PEI",
	NotifyCXLComponent: "CXL Component",
}

// NotificationName returns the label of a known notification type GUID, or
// an empty string.
func NotificationName(g guid.GUID) string {
	return notificationNames[g]
}

// NotificationTypes returns every known notification type GUID.
func NotificationTypes() []guid.GUID {
	return []guid.GUID{
		NotifyCMC, NotifyCPE, NotifyMCE, NotifyPCIe, NotifyINIT, NotifyNMI,
		NotifyBoot, NotifyDMAr, NotifySEA, NotifySEI, NotifyPEI, NotifyCXLComponent,
	}
}

package section

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
)

// FirmwareSize is the payload size of a firmware error record reference.
const FirmwareSize = 32

var firmwareRecordTypes = map[uint64]string{
	0: "IPF SAL Error Record",
	1: "SOC Firmware Error Record (Type1 Legacy CrashLog)",
	2: "SOC Firmware Error Record (Type2)",
}

// Firmware is the firmware error record reference section.
type Firmware struct {
	ErrorRecordType bitfield.Enum `json:"errorRecordType"`
	Revision        uint8         `json:"revision"`
	RecordID        uint64        `json:"recordID"`
	RecordIDGUID    guid.GUID     `json:"recordIDGUID"`
}

// Parse implements Body.
func (s *Firmware) Parse(data []byte) error {
	if len(data) != FirmwareSize {
		return errs.Malformed("firmware section: want %d bytes, have %d", FirmwareSize, len(data))
	}

	r := wire.NewReader(data, "firmware section")
	s.ErrorRecordType = bitfield.Lookup(uint64(r.U8()), firmwareRecordTypes)
	s.Revision = r.U8()
	r.Skip(6)
	s.RecordID = r.U64()
	s.RecordIDGUID = r.GUID()

	return r.Err()
}

// Bytes implements Body.
func (s *Firmware) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(FirmwareSize)
	w.U8(n.U8("errorRecordType", s.ErrorRecordType.Value))
	w.U8(s.Revision)
	w.Zero(6)
	w.U64(s.RecordID)
	w.GUID(s.RecordIDGUID)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

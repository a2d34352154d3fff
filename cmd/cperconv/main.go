// Command cperconv converts UEFI CPER records to and from their intermediate
// tree, generates sample records and converts whole directories in parallel.
package main

func main() {
	execute()
}

package scale

import (
	"github.com/snksoft/crc"
)

var xmodem = crc.NewTable(crc.XMODEM)

// Checksum computes CRC-16/XMODEM (polynomial 0x1021, initial value 0, no reflection)
func Checksum(data []byte) uint16 {
	return uint16(xmodem.CalculateCRC(data))
}

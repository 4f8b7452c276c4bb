package sht3x

import "github.com/sigurn/crc8"

// crcTable holds the Sensirion CRC-8 parameters: x^8+x^5+x^4+1 (0x31),
// init 0xFF, no reflection, no final xor.
var crcTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xF7,
	Name:   "CRC-8/Sensirion",
})

// CRC8 returns the checksum the sensor appends to every 16-bit word.
func CRC8(b []byte) byte {
	return crc8.Checksum(b, crcTable)
}

// CRC8N computes the checksum over the first count bytes of b. count is
// clamped to len(b).
func CRC8N(b []byte, count int) byte {
	if count < 0 {
		count = 0
	}
	if count > len(b) {
		count = len(b)
	}
	return CRC8(b[:count])
}

package sht3x

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// CommandSize is the length of every SHT3x command on the wire.
	CommandSize = 2
	// ResponseSize is the length of a measurement response: two words each
	// followed by its CRC.
	ResponseSize = 6
)

// Single shot measurement MSB, selecting clock stretching.
const (
	msbClockStretch   byte = 0x2C
	msbNoClockStretch byte = 0x24
)

// Repeatability is the LSB of a single shot measurement command.
//
// The datasheet codes differ depending on clock stretching; any byte is
// accepted and sent as-is.
type Repeatability byte

// Repeatability codes from the SHT3x-DIS command table.
const (
	RepeatabilityHigh   Repeatability = 0x00 // no clock stretching
	RepeatabilityMedium Repeatability = 0x0B // no clock stretching
	RepeatabilityLow    Repeatability = 0x16 // no clock stretching

	RepeatabilityHighStretch   Repeatability = 0x06
	RepeatabilityMediumStretch Repeatability = 0x0D
	RepeatabilityLowStretch    Repeatability = 0x10
)

// ErrResponseLength is returned by DecodeResponse for buffers that are not
// exactly ResponseSize bytes long.
var ErrResponseLength = errors.New("sht3x: malformed response length")

// Command is an encoded two byte command.
type Command [CommandSize]byte

// EncodeMeasurementCommand builds a single shot measurement command.
func EncodeMeasurementCommand(clockStretch bool, repeatability Repeatability) Command {
	msb := msbNoClockStretch
	if clockStretch {
		msb = msbClockStretch
	}
	return Command{msb, byte(repeatability)}
}

func (c Command) String() string {
	return fmt.Sprintf("0x%02X%02X", c[0], c[1])
}

// Response is a raw measurement response.
type Response [ResponseSize]byte

// Decoded holds the raw words of a response and the per channel CRC result.
type Decoded struct {
	RawTemp uint16
	RawHum  uint16
	TempOK  bool
	HumOK   bool
}

// DecodeResponse splits a measurement response into its raw words.
//
// A CRC mismatch is reported through TempOK/HumOK, never as an error.
func DecodeResponse(b []byte) (Decoded, error) {
	if len(b) != ResponseSize {
		return Decoded{}, fmt.Errorf("%w: got %d bytes, want %d", ErrResponseLength, len(b), ResponseSize)
	}
	return Decoded{
		RawTemp: binary.BigEndian.Uint16(b[0:2]),
		RawHum:  binary.BigEndian.Uint16(b[3:5]),
		TempOK:  CRC8(b[0:2]) == b[2],
		HumOK:   CRC8(b[3:5]) == b[5],
	}, nil
}

// Encode is the inverse of DecodeResponse with correct checksums. It is used
// by bus fakes and the diagnostic tool.
func (d Decoded) Encode() Response {
	var r Response
	binary.BigEndian.PutUint16(r[0:2], d.RawTemp)
	r[2] = CRC8(r[0:2])
	binary.BigEndian.PutUint16(r[3:5], d.RawHum)
	r[5] = CRC8(r[3:5])
	return r
}

package sht3x

// Bus is the two-wire transaction interface the driver needs. It follows the
// Arduino Wire shape: writes are queued between BeginTransmission and
// EndTransmission, reads are requested with RequestFrom and then drained one
// byte at a time.
//
// Implementations must not block longer than a single bus transaction.
// The driver assumes it is the only user of the bus between calls.
type Bus interface {
	// BeginTransmission starts queueing bytes for addr.
	BeginTransmission(addr uint16)
	// Write queues p and returns how many bytes were accepted.
	Write(p []byte) (int, error)
	// EndTransmission sends the queued bytes.
	EndTransmission() error
	// RequestFrom reads up to n bytes from addr and returns how many are
	// available to ReadByte.
	RequestFrom(addr uint16, n int) int
	// ReadByte returns the next received byte.
	ReadByte() (byte, error)
	// Available returns the number of received bytes not read yet.
	Available() int
	// Flush clears the transmit side of the bus.
	Flush()
}

// Package sht3xtest provides a scripted sht3x.Bus for deterministic tests.
package sht3xtest

import (
	"errors"
	"fmt"
	"sync"
)

// Kind tags a scripted Step.
type Kind int

const (
	// Transmit is consumed by EndTransmission.
	Transmit Kind = iota
	// Receive is consumed by RequestFrom.
	Receive
)

func (k Kind) String() string {
	switch k {
	case Transmit:
		return "transmit"
	case Receive:
		return "receive"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Step is one scripted bus outcome.
type Step struct {
	Kind Kind
	// Accept is the byte count Write reports for a Transmit step. Negative
	// means all bytes.
	Accept int
	// Err is returned by EndTransmission for a Transmit step.
	Err error
	// Data is made available by a Receive step. It may be shorter than the
	// requested length.
	Data []byte
}

// Tx returns a Transmit step accepting every byte.
func Tx() Step { return Step{Kind: Transmit, Accept: -1} }

// TxFail returns a Transmit step that accepts only n bytes.
func TxFail(n int) Step { return Step{Kind: Transmit, Accept: n} }

// Rx returns a Receive step delivering data.
func Rx(data ...byte) Step { return Step{Kind: Receive, Data: data} }

// ErrEmpty is returned by ReadByte when nothing is available.
var ErrEmpty = errors.New("sht3xtest: no data available")

// Bus replays Script in order. When the script is exhausted transmits
// succeed and receives deliver nothing.
type Bus struct {
	mu sync.Mutex

	Script []Step
	// Stale bytes are available before the first RequestFrom, as if a
	// previous transaction was left unread.
	Stale []byte

	// Count is the number of consumed steps.
	Count int
	// Sent records every completed transmission.
	Sent [][]byte
	// Requests records the address of every RequestFrom.
	Requests []uint16
	// Flushes counts Flush calls.
	Flushes int
	// Errors records script mismatches.
	Errors []error

	addr    uint16
	pending []byte
	rx      []byte
	primed  bool
}

func (b *Bus) next(k Kind) (Step, bool) {
	if b.Count >= len(b.Script) {
		return Step{}, false
	}
	s := b.Script[b.Count]
	if s.Kind != k {
		b.Errors = append(b.Errors, fmt.Errorf("sht3xtest: step #%d is %s, got %s", b.Count, s.Kind, k))
		return Step{}, false
	}
	b.Count++
	return s, true
}

func (b *Bus) prime() {
	if !b.primed {
		b.rx = append(b.rx, b.Stale...)
		b.primed = true
	}
}

// BeginTransmission implements sht3x.Bus.
func (b *Bus) BeginTransmission(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addr = addr
	b.pending = b.pending[:0]
}

// Write implements sht3x.Bus. The accepted count comes from the upcoming
// Transmit step.
func (b *Bus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	if b.Count < len(b.Script) && b.Script[b.Count].Kind == Transmit {
		if a := b.Script[b.Count].Accept; a >= 0 && a < n {
			n = a
		}
	}
	b.pending = append(b.pending, p[:n]...)
	return n, nil
}

// EndTransmission implements sht3x.Bus.
func (b *Bus) EndTransmission() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, _ := b.next(Transmit)
	if s.Err != nil {
		return s.Err
	}
	b.Sent = append(b.Sent, append([]byte(nil), b.pending...))
	return nil
}

// RequestFrom implements sht3x.Bus.
func (b *Bus) RequestFrom(addr uint16, n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prime()
	b.Requests = append(b.Requests, addr)
	b.rx = b.rx[:0]
	s, ok := b.next(Receive)
	if !ok {
		return 0
	}
	data := s.Data
	if len(data) > n {
		data = data[:n]
	}
	b.rx = append(b.rx, data...)
	return len(b.rx)
}

// ReadByte implements sht3x.Bus.
func (b *Bus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prime()
	if len(b.rx) == 0 {
		return 0, ErrEmpty
	}
	c := b.rx[0]
	b.rx = b.rx[1:]
	return c, nil
}

// Available implements sht3x.Bus.
func (b *Bus) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prime()
	return len(b.rx)
}

// Flush implements sht3x.Bus.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Flushes++
}

// Done reports an error if script steps are left or mismatches occurred.
func (b *Bus) Done() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Errors) > 0 {
		return errors.Join(b.Errors...)
	}
	if b.Count != len(b.Script) {
		return fmt.Errorf("sht3xtest: consumed %d of %d steps", b.Count, len(b.Script))
	}
	return nil
}

// Package i2cbus is a thin synchronous transport over a Linux I2C device
// node. It knows nothing about PMBus: it opens the bus, binds a target
// address and performs addressed write/read transactions. No operation
// retries internally.
package i2cbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpError is an OS-level bus failure carrying the attempted operation for
// diagnostics.
type OpError struct {
	Op   string // "open", "close" or "tx"
	Bus  string
	Addr uint16 // zero for bus-level operations
	Err  error
}

func (e *OpError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("i2c %s %s addr=0x%02X: %v", e.Op, e.Bus, e.Addr, e.Err)
	}
	return fmt.Sprintf("i2c %s %s: %v", e.Op, e.Bus, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Bus is an open I2C bus. It exclusively owns the underlying handle; no
// other component holds or duplicates it.
type Bus struct {
	name string
	bus  i2c.BusCloser
}

// Open opens the I2C bus behind the given device node (e.g. "/dev/i2c-1").
// Failure here is the only fatal error in the pipeline; callers are expected
// to abort startup on it.
func Open(path string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, &OpError{Op: "open", Bus: path, Err: err}
	}
	b, err := i2creg.Open(path)
	if err != nil {
		return nil, &OpError{Op: "open", Bus: path, Err: err}
	}
	return &Bus{name: path, bus: b}, nil
}

// Close releases the bus handle.
func (b *Bus) Close() error {
	if err := b.bus.Close(); err != nil {
		return &OpError{Op: "close", Bus: b.name, Err: err}
	}
	return nil
}

// Name returns the device node the bus was opened on.
func (b *Bus) Name() string { return b.name }

// Device binds a 7-bit slave address on the bus. Transactions from all
// bound devices serialize on the single bus handle.
func (b *Bus) Device(addr uint16) *Device {
	return &Device{bus: b, addr: addr}
}

// Device is an address-bound view of a Bus. It satisfies pmbus.Bus.
type Device struct {
	bus  *Bus
	addr uint16
}

// Addr returns the bound 7-bit slave address.
func (d *Device) Addr() uint16 { return d.addr }

// Tx writes w to the device and reads readLen bytes in a single transaction
// (repeated start). The call blocks until the kernel completes or fails the
// transfer.
func (d *Device) Tx(w []byte, readLen int) ([]byte, error) {
	r := make([]byte, readLen)
	if err := d.bus.bus.Tx(d.addr, w, r); err != nil {
		return nil, &OpError{Op: "tx", Bus: d.bus.name, Addr: d.addr, Err: err}
	}
	return r, nil
}

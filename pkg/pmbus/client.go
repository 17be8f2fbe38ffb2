package pmbus

// Bus is the transport a Client issues transactions on. An implementation
// is bound to one device address on one bus. Tx writes w to the device and
// then reads readLen bytes within the same transaction (SMBus repeated
// start). It never retries; retry policy belongs to the caller.
type Bus interface {
	Tx(w []byte, readLen int) ([]byte, error)
}

// Client issues PMBus read transactions against a single device and
// validates the reply shape. It holds no reading state and performs exactly
// one write-then-read transaction per call.
type Client struct {
	bus  Bus
	addr uint16 // 7-bit device address, part of the PEC-covered message
	pec  bool
}

// NewClient wraps a device-bound bus. With pec enabled every reply is
// expected to carry a trailing CRC-8 packet error check byte, which is
// verified and stripped.
func NewClient(bus Bus, addr uint16, pec bool) *Client {
	return &Client{bus: bus, addr: addr, pec: pec}
}

// ReadWord executes an SMBus Read Word transaction for cmd and returns the
// raw little-endian word. cmd must have a 2-byte reply.
func (c *Client) ReadWord(cmd Command) (uint16, error) {
	if cmd.Reply != 2 {
		return 0, &ProtocolError{Command: cmd.Name, Code: cmd.Code, Err: ErrReplyLength}
	}
	data, err := c.exec(cmd, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

// ReadByte executes an SMBus Read Byte transaction for cmd. cmd must have a
// 1-byte reply.
func (c *Client) ReadByte(cmd Command) (byte, error) {
	if cmd.Reply != 1 {
		return 0, &ProtocolError{Command: cmd.Name, Code: cmd.Code, Err: ErrReplyLength}
	}
	data, err := c.exec(cmd, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// exec sends the command code and reads n data bytes (plus the PEC byte when
// enabled), returning the data with the PEC verified and stripped.
func (c *Client) exec(cmd Command, n int) ([]byte, error) {
	want := n
	if c.pec {
		want++
	}

	data, err := c.bus.Tx([]byte{cmd.Code}, want)
	if err != nil {
		return nil, &ProtocolError{Command: cmd.Name, Code: cmd.Code, Err: err}
	}
	if len(data) != want {
		return nil, &ProtocolError{Command: cmd.Name, Code: cmd.Code, Err: ErrReplyLength}
	}

	if c.pec {
		// PEC covers the whole message: write address, command code, read
		// address, then the data bytes.
		msg := make([]byte, 0, 3+n)
		msg = append(msg, byte(c.addr<<1), cmd.Code, byte(c.addr<<1)|1)
		msg = append(msg, data[:n]...)
		if crc8(msg) != data[n] {
			return nil, &ProtocolError{Command: cmd.Name, Code: cmd.Code, Err: ErrPEC}
		}
		data = data[:n]
	}
	return data, nil
}

// crc8 computes the SMBus PEC checksum (CRC-8, polynomial x^8+x^2+x+1,
// initial value 0).
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

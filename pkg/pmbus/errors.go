package pmbus

import (
	"errors"
	"fmt"
)

// ErrReplyLength indicates the device returned fewer or more bytes than the
// command's format requires.
var ErrReplyLength = errors.New("unexpected reply length")

// ErrPEC indicates the packet error check byte did not match the reply.
var ErrPEC = errors.New("pec mismatch")

// ProtocolError wraps a failed PMBus transaction with the command it was
// issued for. The wrapped error is either a transport error or one of the
// sentinels above.
type ProtocolError struct {
	Command string
	Code    byte
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pmbus %s (0x%02X): %v", e.Command, e.Code, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

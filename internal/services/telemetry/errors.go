package telemetry

import (
	"errors"
	"fmt"
)

var (
	ErrPortUnavailable = errors.New("serial port unavailable")
	ErrWriteFailed     = errors.New("failed to write to serial port")
	ErrEncode          = errors.New("failed to encode counts")
	// ErrDisabled is returned by DisabledSender; nothing reached the controller
	ErrDisabled = errors.New("serial telemetry disabled")

	// ErrChecksum is returned by decoders when the integrity check fails
	ErrChecksum = errors.New("checksum mismatch")
	// ErrFrame is returned by decoders for malformed framing
	ErrFrame = errors.New("malformed frame")
)

// ErrorKind classifies a failed send so the caller can choose a policy
type ErrorKind int

const (
	KindPortUnavailable ErrorKind = iota + 1
	KindWriteFailed
	KindEncode
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindPortUnavailable:
		return ErrPortUnavailable
	case KindWriteFailed:
		return ErrWriteFailed
	case KindEncode:
		return ErrEncode
	}
	return errors.New("unknown telemetry error")
}

func (k ErrorKind) String() string {
	switch k {
	case KindPortUnavailable:
		return "port_unavailable"
	case KindWriteFailed:
		return "write_failed"
	case KindEncode:
		return "encode"
	}
	return "unknown"
}

// SendError is the typed failure of Sender.Open or Sender.Send.
// errors.Is matches both the kind sentinel and the underlying cause.
type SendError struct {
	Kind ErrorKind
	Port string
	Err  error
}

func (e *SendError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%v: %v", e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind.sentinel(), e.Port, e.Err)
}

func (e *SendError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

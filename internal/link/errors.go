package link

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no frame arrives before the deadline.
	ErrTimeout = errors.New("link timeout")

	// ErrClosed is returned once the underlying stream has ended.
	ErrClosed = errors.New("link closed")

	// ErrNoBarcode reports that the reader saw no barcode.
	ErrNoBarcode = errors.New("no barcode")

	// ErrNoProduct reports an unknown barcode.
	ErrNoProduct = errors.New("no product")

	// ErrRemoteTimeout reports that the gateway's own network call timed out.
	ErrRemoteTimeout = errors.New("remote timeout")
)

// IsTimeout reports whether err is a link deadline expiry.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// ProtocolError is a frame the receiver could not interpret.
type ProtocolError struct {
	Code    ProtocolErrorCode
	Request string
	Frame   string
	Message string
}

// ProtocolErrorCode categorizes protocol errors.
type ProtocolErrorCode string

const (
	// ErrCodeMalformedFrame indicates an unrecognized or badly formed line.
	ErrCodeMalformedFrame ProtocolErrorCode = "MALFORMED_FRAME"

	// ErrCodeUnexpectedReply indicates a well-formed line that does not
	// answer the request that was sent.
	ErrCodeUnexpectedReply ProtocolErrorCode = "UNEXPECTED_REPLY"
)

func (e *ProtocolError) Error() string {
	if e.Request != "" {
		return fmt.Sprintf("%s: %s (request=%s, frame=%q)", e.Code, e.Message, e.Request, e.Frame)
	}
	return fmt.Sprintf("%s: %s (frame=%q)", e.Code, e.Message, e.Frame)
}

// IsMalformedFrame reports whether err is a MALFORMED_FRAME ProtocolError.
func IsMalformedFrame(err error) bool {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMalformedFrame
	}
	return false
}

// IsUnexpectedReply reports whether err is an UNEXPECTED_REPLY ProtocolError.
func IsUnexpectedReply(err error) bool {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeUnexpectedReply
	}
	return false
}

func malformed(frame, msg string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeMalformedFrame, Frame: frame, Message: msg}
}

func unexpected(req, frame string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeUnexpectedReply, Request: req, Frame: frame, Message: "reply does not match request"}
}

// HTTPError is a non-2xx status the gateway got from the server.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string { return fmt.Sprintf("gateway http error %d", e.Status) }

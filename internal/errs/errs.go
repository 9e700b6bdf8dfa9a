// Package errs holds the error taxonomy shared by the connection, session,
// registry and plugin layers.
package errs

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Transport failures that end a session.
var (
	ErrConnectionReset   = errors.New("connection reset")
	ErrNotConnected      = errors.New("not connected")
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

var (
	ErrTransient        = errors.New("transient transport condition")
	ErrProtocolMismatch = errors.New("line does not match the IRC message grammar")
	ErrLineTooLong      = errors.New("line exceeds the receive buffer")

	ErrPluginLoad      = errors.New("plugin load failed")
	ErrDuplicatePlugin = errors.New("plugin already loaded")
	ErrPluginNotLoaded = errors.New("plugin is not loaded")

	ErrConfigMissing = errors.New("configuration missing")

	ErrNotRegistered   = errors.New("session is not registered")
	ErrNoChannels      = errors.New("no channel names given")
	ErrChannelNotFound = errors.New("channel not in set")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransportError is a classified failure from the transport.
type TransportError struct {
	Op   string // "dial", "read", "write", "close"
	Kind error  // one of the transport sentinels or ErrTransient
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v (%v)", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Classify wraps err in a TransportError with its kind detected.
// A nil err stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Kind: kindOf(err), Err: err}
}

// Transient reports whether err may be retried in place.
func Transient(err error) bool {
	return err != nil && errors.Is(Classify("", err), ErrTransient)
}

// Fatal reports whether err ends the transport.
func Fatal(err error) bool {
	return err != nil && !Transient(err)
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
		return ErrTransient
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTransient
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return ErrConnectionReset
	case errors.Is(err, syscall.ENOTCONN):
		return ErrNotConnected
	case errors.Is(err, syscall.EBADF), errors.Is(err, net.ErrClosed):
		return ErrInvalidDescriptor
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTransient
	}
	return ErrConnectionReset
}

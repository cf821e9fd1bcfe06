// Package spinel implements the host-side codec and transaction engine for
// the Spinel NCP control protocol: a type-directed wire codec, packet
// framing, and a TID-multiplexed request/response dispatcher.
package spinel

import "errors"

// Sentinel errors returned (wrapped with context via fmt.Errorf("%w")) by the
// codec, frame, and dispatch layers. Callers should match them with
// errors.Is, never by string comparison.
var (
	// ErrTruncated means the input buffer was shorter than the format
	// demanded. Recoverable at the frame boundary: the packet is dropped
	// and the reader continues.
	ErrTruncated = errors.New("spinel: truncated input")

	// ErrMalformed means the input was structurally invalid: a bad
	// boolean byte, an unterminated string, a varint longer than 4
	// bytes, or unbalanced parentheses in a format string.
	ErrMalformed = errors.New("spinel: malformed input")

	// ErrBadFormat means the format string itself is invalid: D or A(...)
	// not in tail position, or t/A without a parenthesized inner format.
	ErrBadFormat = errors.New("spinel: bad format string")

	// ErrUnknownProperty means a property identifier has no registry
	// entry. The payload is still returned as raw bytes.
	ErrUnknownProperty = errors.New("spinel: unknown property")

	// ErrUnknownCommand means a command identifier is not one of the
	// three PROP_VALUE_* commands this core recognizes.
	ErrUnknownCommand = errors.New("spinel: unknown command")

	// ErrTimeout means a blocking wait reached its deadline without a
	// matching response.
	ErrTimeout = errors.New("spinel: timeout waiting for property")

	// ErrTransport wraps a write failure from the underlying transport in
	// the Mux's transmit path. Read failures are not wrapped with it:
	// Reader.Run returns them as the transport reported them (or nil on
	// cooperative shutdown or io.EOF).
	ErrTransport = errors.New("spinel: transport error")

	// ErrClosed is returned by Mux.Transact when called after Close; the
	// blocking PropGet/Set/Insert/Remove and Reset calls do not check it.
	ErrClosed = errors.New("spinel: mux closed")
)

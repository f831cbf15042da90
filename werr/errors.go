// Package werr contains the error kinds shared across webrtcdirect packages.
//
// Every kind is a plain struct type with a value receiver,
// so callers match them with [errors.As]:
//
//	var iae werr.InappropriateAddressError
//	if errors.As(err, &iae) { ... }
//
// None of these errors are retried inside webrtcdirect.
// Retrying with a different candidate address is a caller concern.
package werr

import (
	"fmt"
	"strconv"
)

// InappropriateAddressError indicates that an address
// is structurally unusable for the requested operation,
// for example because it lacks a certhash or /p2p component.
type InappropriateAddressError struct {
	Addr string

	Reason string
}

func (e InappropriateAddressError) Error() string {
	if e.Addr == "" {
		return "inappropriate address: " + e.Reason
	}
	return "inappropriate address " + e.Addr + ": " + e.Reason
}

// UnsupportedHashAlgorithmError is returned when a certificate fingerprint,
// local or remote, uses a hash algorithm outside the allow-list.
type UnsupportedHashAlgorithmError struct {
	Name string
}

func (e UnsupportedHashAlgorithmError) Error() string {
	return "unsupported hash algorithm " + strconv.Quote(e.Name)
}

// InvalidArgumentError indicates malformed input to a pure function.
// It always signals a caller bug.
type InvalidArgumentError struct {
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// DataChannelError is returned when a data channel
// errors or fails to open in time.
type DataChannelError struct {
	Label string

	// The last ready state observed on the channel.
	State string

	// Set when the channel did not open before the handshake timeout.
	TimedOut bool

	// The underlying error reported by the engine, if any.
	Err error
}

func (e DataChannelError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf(
			"data channel %q did not open before timeout (state=%s)",
			e.Label, e.State,
		)
	case e.Err != nil:
		return fmt.Sprintf(
			"data channel %q errored (state=%s): %v",
			e.Label, e.State, e.Err,
		)
	default:
		return fmt.Sprintf("data channel %q failed (state=%s)", e.Label, e.State)
	}
}

func (e DataChannelError) Unwrap() error {
	return e.Err
}

// UnimplementedError is returned from operations that are intentionally unsupported.
type UnimplementedError struct {
	Op string
}

func (e UnimplementedError) Error() string {
	return e.Op + " is not implemented"
}

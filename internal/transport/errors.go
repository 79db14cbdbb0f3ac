package transport

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotConnected = errors.New("smtp: not connected")

// DNSResolutionError reports a failed hostname lookup during Connect.
type DNSResolutionError struct {
	Host string
	Err  error
}

func (e *DNSResolutionError) Error() string {
	return fmt.Sprintf("smtp: resolving %s: %v", e.Host, e.Err)
}

func (e *DNSResolutionError) Unwrap() error {
	return e.Err
}

// ConnectTimeoutError reports that the TCP connection was not established
// within the configured bound. The in-flight attempt has been abandoned.
type ConnectTimeoutError struct {
	Addr    string
	Timeout time.Duration
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("smtp: connecting to %s: no connection after %s", e.Addr, e.Timeout)
}

// ProtocolError reports a reply the protocol state machine cannot continue
// from: a bad greeting, a malformed or unexpected handshake line, or a read
// that failed mid-session. Line is the raw server line when one was read.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("smtp: protocol error: %q", e.Line)
	}
	return fmt.Sprintf("smtp: protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// UnexpectedReplyError reports a well-formed reply outside the accepted set
// for the command that was sent.
type UnexpectedReplyError struct {
	Expected []int
	Line     string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("smtp: expected reply %v, got %q", e.Expected, e.Line)
}

// InvalidAddressError reports a syntactically invalid recipient address.
// It is returned before anything is sent for that recipient.
type InvalidAddressError struct {
	Address string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("smtp: invalid address %q", e.Address)
}

package wdns

import (
	"fmt"
)

// QueryTimeoutError is returned when the total query budget elapses
// before any server produced a usable response.
type QueryTimeoutError struct {
	query *Msg
}

func (e QueryTimeoutError) Error() string {
	return fmt.Sprintf("query for '%s' timed out", qName(e.query))
}

// FormatError is returned when wire bytes violate DNS framing or label
// rules.
type FormatError struct {
	Reason string
}

func (e FormatError) Error() string {
	return "dns format error: " + e.Reason
}

// UnsupportedLabelError is returned when a name uses an extended label
// type other than the historical binary form.
type UnsupportedLabelError struct {
	Label byte
}

func (e UnsupportedLabelError) Error() string {
	return fmt.Sprintf("unsupported extended label type 0x%02x", e.Label)
}

// NoResponseError is returned once every configured server has been
// tried without a usable reply. It carries the last underlying cause.
type NoResponseError struct {
	Cause error
}

func (e NoResponseError) Error() string {
	if e.Cause != nil {
		return "no response from any server: " + e.Cause.Error()
	}
	return "no response from any server"
}

func (e NoResponseError) Unwrap() error {
	return e.Cause
}

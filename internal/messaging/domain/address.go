package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// Address identifies a transport endpoint as a URL, e.g. "kafka://orders"
// or "mem://audit". The scheme selects the transport.
type Address struct {
	raw string
	u   *url.URL
}

// ParseAddress validates raw and returns its Address.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}, ErrInvalidAddress
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, wrapAddress(raw, err.Error())
	}
	if u.Scheme == "" {
		return Address{}, wrapAddress(raw, "missing scheme")
	}
	if u.Host == "" && u.Opaque == "" && strings.Trim(u.Path, "/") == "" {
		return Address{}, wrapAddress(raw, "missing endpoint name")
	}

	return Address{raw: raw, u: u}, nil
}

// MustParseAddress is ParseAddress that panics on error. Use for constants.
func MustParseAddress(raw string) Address {
	a, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// Scheme returns the lower-cased URL scheme.
func (a Address) Scheme() string {
	if a.u == nil {
		return ""
	}
	return strings.ToLower(a.u.Scheme)
}

// Name returns the endpoint name without scheme, e.g. "orders" for "kafka://orders".
func (a Address) Name() string {
	if a.u == nil {
		return ""
	}
	if a.u.Opaque != "" {
		return a.u.Opaque
	}
	return strings.Trim(a.u.Host+a.u.Path, "/")
}

// URL returns a copy of the parsed URL.
func (a Address) URL() *url.URL {
	if a.u == nil {
		return nil
	}
	u := *a.u
	return &u
}

// IsZero reports whether a was never parsed.
func (a Address) IsZero() bool { return a.u == nil }

func (a Address) String() string { return a.raw }

func wrapAddress(raw, reason string) error {
	return &AddressError{Address: raw, Reason: reason}
}

// AddressError describes why an address failed to parse.
type AddressError struct {
	Address string
	Reason  string
}

func (e *AddressError) Error() string {
	return "invalid address " + strconv.Quote(e.Address) + ": " + e.Reason
}

// Unwrap returns ErrInvalidAddress.
func (e *AddressError) Unwrap() error { return ErrInvalidAddress }

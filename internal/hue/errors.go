package hue

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBridge is returned when the discovery endpoint lists no bridges
	ErrNoBridge = errors.New("unable to discover Hue bridge on network")

	// ErrRegistration is returned when the bridge answers a registration with an empty list
	ErrRegistration = errors.New("unable to register to bridge API")

	// ErrLightNotFound is returned when no light carries the requested name
	ErrLightNotFound = errors.New("light not found")
)

// TransportError describes a failed round trip to the bridge or discovery endpoint.
// StatusCode is zero when no HTTP response was received.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

package responder

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an exchange with the responder failed.
type Kind int

const (
	// KindNetwork means the request could not be completed.
	KindNetwork Kind = iota + 1
	// KindServer means the responder answered with a non-success status or an unreadable body.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Respond for every failed exchange.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("responder %s failure (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("responder %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, or 0 when err is not a responder error.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return 0
}

// StatusOf extracts the HTTP status from err, or 0 when none was received.
func StatusOf(err error) int {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Status
	}
	return 0
}

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsServer reports whether err is a server failure.
func IsServer(err error) bool { return KindOf(err) == KindServer }

package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownType marks a task whose transport type has no driver. Tasks
// carrying it are undeliverable by construction and are never retried.
var ErrUnknownType = errors.New("transport not found")

// Driver delivers one message to one external chat. Implementations are
// stateless and safe for concurrent use.
type Driver interface {
	Push(ctx context.Context, chat, title, body string) error
}

// Registry maps a transport type to its driver.
type Registry map[string]Driver

func (r Registry) Driver(transportType string) (Driver, error) {
	driver, ok := r[transportType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, transportType)
	}
	return driver, nil
}

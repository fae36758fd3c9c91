//go:build !linux

package notify

import (
	"errors"
	"time"
)

// ErrEventfdUnavailable is returned on platforms without eventfd;
// EffectiveKind already substitutes the socket variant before
// construction would reach here, so this only guards direct misuse.
var ErrEventfdUnavailable = errors.New("notify: eventfd unavailable on this platform")

type eventfdNotifier struct{}

func NewEventfd() (*eventfdNotifier, error) { return nil, ErrEventfdUnavailable }

func AdoptEventfd(fd int) *eventfdNotifier { return &eventfdNotifier{} }

func (n *eventfdNotifier) FD() int { return -1 }

func (n *eventfdNotifier) Signal() error { return ErrEventfdUnavailable }

func (n *eventfdNotifier) Wait(timeout time.Duration) (bool, error) {
	return false, ErrEventfdUnavailable
}

func (n *eventfdNotifier) Close() error { return nil }

var _ Notifier = (*eventfdNotifier)(nil)

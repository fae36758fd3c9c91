//go:build linux

package notify

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// eventfdNotifier wraps a Linux eventfd in counting mode. Created by the
// consumer and inherited by producers across a fork boundary; a producer
// attaching from an unrelated (non-forked) process cannot use this kind,
// which is why the socket variant exists.
type eventfdNotifier struct {
	fd int
}

// NewEventfd creates a new counting eventfd, non-blocking so Wait can
// apply its own timeout via poll rather than relying on a blocking read.
func NewEventfd() (*eventfdNotifier, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("notify: eventfd: %w", err)
	}
	return &eventfdNotifier{fd: fd}, nil
}

// AdoptEventfd wraps an already-open, inherited eventfd descriptor (the
// producer path: it adopts the fd but never created it and must not
// close a descriptor it did not create's backing object, only its own
// fd table entry).
func AdoptEventfd(fd int) *eventfdNotifier {
	return &eventfdNotifier{fd: fd}
}

// FD returns the underlying descriptor, e.g. for inheritance across fork/exec.
func (n *eventfdNotifier) FD() int { return n.fd }

// Signal increments the eventfd counter by exactly 1.
func (n *eventfdNotifier) Signal() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(n.fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("notify: eventfd signal: %w", err)
	}
	return nil
}

// Wait blocks up to timeout for at least one token, then resets the
// counter to zero by reading it (counting descriptor semantics: a single
// read consumes the full accumulated count).
func (n *eventfdNotifier) Wait(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(n.fd), Events: unix.POLLIN}}
	ms := int(timeout.Milliseconds())
	if ms < 0 {
		ms = 0
	}
	nReady, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, fmt.Errorf("notify: eventfd poll: %w", err)
	}
	if nReady == 0 {
		return false, nil
	}

	var buf [8]byte
	_, err = unix.Read(n.fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return false, fmt.Errorf("notify: eventfd read: %w", err)
	}
	return true, nil
}

// Close closes this process's descriptor. It does not unlink anything
// since eventfds have no filesystem presence.
func (n *eventfdNotifier) Close() error {
	return unix.Close(n.fd)
}

var _ Notifier = (*eventfdNotifier)(nil)

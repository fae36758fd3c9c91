package notify

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// socketServerNotifier is the consumer side of the socket-path variant:
// it binds a datagram socket at path and both signals (by virtue of
// being connected to by producers) and waits for tokens.
type socketServerNotifier struct {
	fd   int
	path string
}

// NewSocketServer binds a SOCK_DGRAM server at path, removing any stale
// socket file left by a prior crashed instance first.
func NewSocketServer(path string) (*socketServerNotifier, error) {
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("notify: socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("notify: bind %s: %w", path, err)
	}
	return &socketServerNotifier{fd: fd, path: path}, nil
}

// Signal sends a single byte of value 1 to its own socket; used only by
// tests exercising the server in isolation. Producers signal via
// socketClientNotifier instead.
func (n *socketServerNotifier) Signal() error {
	return sendToken(n.fd, n.path)
}

// Wait drains all pending datagrams in one call, returning true if at
// least one was received within timeout.
func (n *socketServerNotifier) Wait(timeout time.Duration) (bool, error) {
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
		return false, fmt.Errorf("notify: socket poll: %w", err)
	}
	if nReady == 0 {
		return false, nil
	}

	woke := false
	buf := make([]byte, 1)
	for {
		rn, _, err := unix.Recvfrom(n.fd, buf, unix.MSG_DONTWAIT)
		if err != nil {
			break
		}
		if rn > 0 {
			woke = true
		}
	}
	return woke, nil
}

// Close closes the socket and unlinks the backing path; only the
// consumer (owner) path does this, never the producer.
func (n *socketServerNotifier) Close() error {
	_ = unix.Close(n.fd)
	return os.Remove(n.path)
}

var _ Notifier = (*socketServerNotifier)(nil)

// socketClientNotifier is the producer side: it sends tokens to the
// server's path without binding anything of its own, and never unlinks
// the path on Close.
type socketClientNotifier struct {
	fd   int
	path string
}

// NewSocketClient connects to an existing server at path.
func NewSocketClient(path string) (*socketClientNotifier, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("notify: socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("notify: connect %s: %w", path, err)
	}
	return &socketClientNotifier{fd: fd, path: path}, nil
}

// Signal sends a single byte of value 1 to the server path.
func (n *socketClientNotifier) Signal() error {
	return sendToken(n.fd, n.path)
}

// Wait is not meaningful on the client side; producers never wait.
func (n *socketClientNotifier) Wait(timeout time.Duration) (bool, error) {
	return false, fmt.Errorf("notify: socket client does not support Wait")
}

// Close releases only this process's descriptor; the server's bound
// path is left untouched.
func (n *socketClientNotifier) Close() error {
	return unix.Close(n.fd)
}

var _ Notifier = (*socketClientNotifier)(nil)

func sendToken(fd int, path string) error {
	sa := &unix.SockaddrUnix{Name: path}
	err := unix.Sendto(fd, []byte{1}, unix.MSG_DONTWAIT, sa)
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("notify: sendto %s: %w", path, err)
	}
	return nil
}

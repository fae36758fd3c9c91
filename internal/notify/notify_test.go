package notify

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDerivePath(t *testing.T) {
	// Deterministic path derivation from the stripped region name.
	path := DerivePath("/tmp", "shmlog", "/appshm")
	require.Equal(t, "/tmp/shmlog_appshm.sock", path)
}

func TestResolvePathUserOverrideWins(t *testing.T) {
	// A non-empty user path always wins over the derived path.
	path := ResolvePath("/custom.sock", "/tmp", "shmlog", "/appshm")
	require.Equal(t, "/custom.sock", path)
}

func TestResolvePathFallsBackToDerived(t *testing.T) {
	path := ResolvePath("", "/tmp", "shmlog", "/appshm")
	require.Equal(t, DerivePath("/tmp", "shmlog", "/appshm"), path)
}

func TestEffectiveKindSubstitutesOnNonLinux(t *testing.T) {
	// Platform substitution policy.
	got := EffectiveKind(KindDescriptor)
	if runtime.GOOS == "linux" {
		require.Equal(t, KindDescriptor, got)
	} else {
		require.Equal(t, KindSocketPath, got)
	}
}

func TestEffectiveKindNeverChangesSocketPathRequest(t *testing.T) {
	require.Equal(t, KindSocketPath, EffectiveKind(KindSocketPath))
}

func TestDefaultTmpDirNonEmpty(t *testing.T) {
	require.NotEmpty(t, DefaultTmpDir())
}

func TestSocketServerClientSignalWait(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("AF_UNIX SOCK_DGRAM notifier exercised on Linux only")
	}

	path := t.TempDir() + "/test_notify.sock"
	defer os.Remove(path)

	server, err := NewSocketServer(path)
	require.NoError(t, err)
	defer server.Close()

	client, err := NewSocketClient(path)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Signal())

	woke, err := server.Wait(time.Second)
	require.NoError(t, err)
	require.True(t, woke)
}

func TestSocketServerWaitTimesOutWithoutSignal(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("AF_UNIX SOCK_DGRAM notifier exercised on Linux only")
	}

	path := t.TempDir() + "/test_notify_idle.sock"
	defer os.Remove(path)

	server, err := NewSocketServer(path)
	require.NoError(t, err)
	defer server.Close()

	woke, err := server.Wait(50 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, woke)
}

func TestSocketServerWaitDrainsAllPendingTokens(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("AF_UNIX SOCK_DGRAM notifier exercised on Linux only")
	}

	path := t.TempDir() + "/test_notify_burst.sock"
	defer os.Remove(path)

	server, err := NewSocketServer(path)
	require.NoError(t, err)
	defer server.Close()

	client, err := NewSocketClient(path)
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, client.Signal())
	}

	woke, err := server.Wait(time.Second)
	require.NoError(t, err)
	require.True(t, woke)

	// A second immediate wait should find nothing left pending.
	woke, err = server.Wait(50 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, woke)
}

func TestSocketClientWaitIsUnsupported(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("AF_UNIX SOCK_DGRAM notifier exercised on Linux only")
	}

	path := t.TempDir() + "/test_notify_client_wait.sock"
	defer os.Remove(path)

	server, err := NewSocketServer(path)
	require.NoError(t, err)
	defer server.Close()

	client, err := NewSocketClient(path)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Wait(time.Millisecond)
	require.Error(t, err)
}

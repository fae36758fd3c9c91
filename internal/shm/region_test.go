package shm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/shmlog/internal/registry"
)

// withTestRegistry redirects the package-level registry (used by
// Create/Destroy) at a scratch home directory so these tests never touch
// the real user's registry file.
func withTestRegistry(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)
}

func TestCreateAttachRoundTrip(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-create-attach"

	created, err := Create(name, 4096)
	require.NoError(t, err)
	defer Destroy(name)
	require.Len(t, created.Data, 4096)

	created.Data[0] = 0xAB

	attached, err := Attach(name, 4096)
	require.NoError(t, err)
	defer attached.Unmap()
	require.Equal(t, byte(0xAB), attached.Data[0])
}

func TestAttachInfersSizeWhenNotGiven(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-attach-infer"

	_, err := Create(name, 8192)
	require.NoError(t, err)
	defer Destroy(name)

	attached, err := Attach(name, 0)
	require.NoError(t, err)
	defer attached.Unmap()
	require.Len(t, attached.Data, 8192)
}

func TestAttachMissingRegionFails(t *testing.T) {
	withTestRegistry(t)
	_, err := Attach("/shmlog-test-does-not-exist", 4096)
	require.Error(t, err)
}

func TestAttachAndCheckVersionSucceedsOnMatch(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-version-ok"

	created, err := Create(name, 4096)
	require.NoError(t, err)
	defer Destroy(name)
	binary.LittleEndian.PutUint32(created.Data[0:4], 3)

	versionAt := func(b []byte) uint32 { return binary.LittleEndian.Uint32(b[0:4]) }
	attached, err := AttachAndCheckVersion(name, 4096, 3, versionAt)
	require.NoError(t, err)
	defer attached.Unmap()
}

func TestAttachAndCheckVersionFailsOnMismatchWithoutLeakingMapping(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-version-mismatch"

	created, err := Create(name, 4096)
	require.NoError(t, err)
	defer Destroy(name)
	binary.LittleEndian.PutUint32(created.Data[0:4], 1)

	versionAt := func(b []byte) uint32 { return binary.LittleEndian.Uint32(b[0:4]) }
	region, err := AttachAndCheckVersion(name, 4096, 2, versionAt)
	require.Nil(t, region)
	require.Error(t, err)

	var verErr *VersionMismatchError
	require.ErrorAs(t, err, &verErr)
	require.Equal(t, uint32(2), verErr.Expected)
	require.Equal(t, uint32(1), verErr.Observed)
}

func TestUnmapIsIdempotent(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-unmap-idempotent"

	created, err := Create(name, 4096)
	require.NoError(t, err)
	defer Destroy(name)

	require.NoError(t, created.Unmap())
	require.NoError(t, created.Unmap())
	require.Nil(t, created.Data)
}

func TestCreateRejectsNonPositiveSize(t *testing.T) {
	withTestRegistry(t)
	_, err := Create("/shmlog-test-bad-size", 0)
	require.Error(t, err)
}

func TestObjectPathRejectsInvalidNames(t *testing.T) {
	withTestRegistry(t)
	for _, name := range []string{"", "noslash", "/has/slash"} {
		_, err := Create(name, 4096)
		require.Error(t, err, "expected %q to be rejected", name)
	}
}

func TestDestroyDeregistersName(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-destroy-deregisters"

	_, err := Create(name, 4096)
	require.NoError(t, err)

	require.NoError(t, Destroy(name))

	names, err := registry.List()
	require.NoError(t, err)
	require.NotContains(t, names, name)

	_, err = Attach(name, 4096)
	require.Error(t, err, "region should no longer exist after Destroy")
}

func TestDestroyMissingRegionIsNotAnError(t *testing.T) {
	withTestRegistry(t)
	require.NoError(t, Destroy("/shmlog-test-destroy-missing"))
}

func TestScanDirIncludesCreatedRegion(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-test-scandir"

	_, err := Create(name, 4096)
	require.NoError(t, err)
	defer Destroy(name)

	names, err := ScanDir()
	require.NoError(t, err)
	require.Contains(t, names, name)
}

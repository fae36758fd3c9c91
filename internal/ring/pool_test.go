package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScratchPoolRoundTrip(t *testing.T) {
	buf := getScratch(200)
	require.Len(t, buf, 200)
	require.LessOrEqual(t, cap(buf), size1k)
	putScratch(buf)
}

func TestScratchPoolBucketSizes(t *testing.T) {
	cases := []uint32{1, size1k, size1k + 1, size4k, size16k, size64k, size64k + 1}
	for _, size := range cases {
		buf := getScratch(size)
		require.Len(t, buf, int(size))
		putScratch(buf)
	}
}

package compressors

import (
	"bytes"
	"testing"

	"github.com/go-spill/spill"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, c spill.BlockCompressor) {
	block := bytes.Repeat([]byte("partitioned spill data "), 200)
	compressed, err := c.Compress(block)
	require.Nil(t, err)
	require.True(t, len(compressed) < len(block))
	restored, err := c.Decompress(compressed)
	require.Nil(t, err)
	require.Equal(t, block, restored)
}

func TestLZ4CompressorRoundTrip(t *testing.T) {
	roundTrip(t, CreateLZ4Compressor())
}

func TestZstdCompressorRoundTrip(t *testing.T) {
	roundTrip(t, CreateZstdCompressor())
}

func TestCompressedBlocksAreIndependent(t *testing.T) {
	c := CreateLZ4Compressor()
	first, err := c.Compress([]byte("block one"))
	require.Nil(t, err)
	second, err := c.Compress([]byte("block two"))
	require.Nil(t, err)
	// each block decompresses on its own, without the other's context
	restored, err := c.Decompress(second)
	require.Nil(t, err)
	require.Equal(t, []byte("block two"), restored)
	restored, err = c.Decompress(first)
	require.Nil(t, err)
	require.Equal(t, []byte("block one"), restored)
}

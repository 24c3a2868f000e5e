package compressors

import (
	"log"

	"github.com/go-spill/spill"
	"github.com/klauspost/compress/zstd"
)

// ZstdBlockCompressor is a BlockCompressor which uses the zstd compression
// algorithm at its fastest encoder level
type ZstdBlockCompressor struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// CreateZstdCompressor instantiates a new ZstdBlockCompressor
func CreateZstdCompressor() spill.BlockCompressor {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		log.Fatalf("Unable to initialize compressor: %e", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		log.Fatalf("Unable to initialize decompressor: %e", err)
	}
	return &ZstdBlockCompressor{compressor: compressor, decompressor: decompressor}
}

// Compress compresses a drained block
func (c *ZstdBlockCompressor) Compress(src []byte) ([]byte, error) {
	return c.compressor.EncodeAll(src, nil), nil
}

// Decompress restores a compressed block
func (c *ZstdBlockCompressor) Decompress(src []byte) ([]byte, error) {
	return c.decompressor.DecodeAll(src, nil)
}

package compressors

import (
	"bytes"
	"io/ioutil"

	"github.com/go-spill/spill"
	"github.com/pierrec/lz4"
)

// LZ4BlockCompressor is a BlockCompressor which uses the lz4 compression
// algorithm. Each block becomes one self-contained lz4 frame.
type LZ4BlockCompressor struct{}

// CreateLZ4Compressor instantiates a new LZ4BlockCompressor
func CreateLZ4Compressor() spill.BlockCompressor {
	return &LZ4BlockCompressor{}
}

// Compress compresses a drained block
func (c *LZ4BlockCompressor) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress restores a compressed block
func (c *LZ4BlockCompressor) Decompress(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	return ioutil.ReadAll(zr)
}

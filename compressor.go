package spill

// A BlockCompressor compresses and decompresses whole drained spill blocks.
// Compression is applied per drained block, so each block appended to the
// durable store is an independently decompressible unit.
type BlockCompressor interface {
	Compress(src []byte) ([]byte, error)   // Compress compresses a drained block
	Decompress(src []byte) ([]byte, error) // Decompress restores a compressed block
}

package util

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FormatMultiError formats multierrors for logging
func FormatMultiError(merrs []error) string {
	var msg = ""
	for i := 0; i < len(merrs); i++ {
		msg += fmt.Sprintf("%+v\n", merrs[i])
	}
	return msg
}

// KeyBytes produces a stable byte representation of a record key, for hashing
// and for fixed-width binary encoding. Integer and float keys are rendered as
// 8 big-endian bytes so that representations sort consistently.
func KeyBytes(key interface{}) ([]byte, error) {
	switch k := key.(type) {
	case []byte:
		return k, nil
	case string:
		return []byte(k), nil
	case int:
		return uint64Bytes(uint64(int64(k))), nil
	case int32:
		return uint64Bytes(uint64(int64(k))), nil
	case int64:
		return uint64Bytes(uint64(k)), nil
	case uint32:
		return uint64Bytes(uint64(k)), nil
	case uint64:
		return uint64Bytes(k), nil
	case float64:
		return uint64Bytes(math.Float64bits(k)), nil
	case bool:
		if k {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	default:
		return nil, fmt.Errorf("Unsupported key type %T", key)
	}
}

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

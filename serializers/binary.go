package serializers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-spill/spill"
	iutil "github.com/go-spill/spill/internal/util"
)

const (
	tagBytes = uint8(iota + 1)
	tagString
	tagInt64
	tagUint64
	tagFloat64
	tagBool
)

// binarySerializer is a Serializer which encodes each record as two tagged,
// length-prefixed fields (key then value). Supported key/value types are
// []byte, string, int, int32, int64, uint32, uint64, float64 and bool -
// anything else is a serialization failure.
type binarySerializer struct{}

// CreateBinarySerializer produces a tagged length-prefixed binary Serializer
func CreateBinarySerializer() spill.Serializer {
	return &binarySerializer{}
}

// OpenEncoder produces a RecordEncoder targeting w
func (s *binarySerializer) OpenEncoder(w io.Writer) spill.RecordEncoder {
	return &binaryEncoder{w: w}
}

type binaryEncoder struct {
	w       io.Writer
	scratch bytes.Buffer
}

// Encode serializes a single Record. Records are staged in a scratch buffer
// so that a failed encode leaves no partial bytes in the target stream.
func (e *binaryEncoder) Encode(rec spill.Record) error {
	e.scratch.Reset()
	if err := writeField(&e.scratch, rec.Key); err != nil {
		return err
	}
	if err := writeField(&e.scratch, rec.Value); err != nil {
		return err
	}
	_, err := e.w.Write(e.scratch.Bytes())
	return err
}

// Flush materializes any bytes buffered within the encoder. The binary
// encoder writes through, so this is a no-op.
func (e *binaryEncoder) Flush() error {
	return nil
}

// Close releases encoder resources
func (e *binaryEncoder) Close() error {
	return nil
}

func writeField(w io.Writer, v interface{}) error {
	tag, err := fieldTag(v)
	if err != nil {
		return err
	}
	data, err := iutil.KeyBytes(v)
	if err != nil {
		return err
	}
	header := make([]byte, 5)
	header[0] = tag
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func fieldTag(v interface{}) (uint8, error) {
	switch v.(type) {
	case []byte:
		return tagBytes, nil
	case string:
		return tagString, nil
	case int, int32, int64:
		return tagInt64, nil
	case uint32, uint64:
		return tagUint64, nil
	case float64:
		return tagFloat64, nil
	case bool:
		return tagBool, nil
	default:
		return 0, fmt.Errorf("Unsupported field type %T", v)
	}
}

// DecodeBinaryRecords restores Records from a block (or concatenation of
// blocks) produced via CreateBinarySerializer. Intended for readers and tests.
func DecodeBinaryRecords(data []byte) ([]spill.Record, error) {
	var records []spill.Record
	offset := 0
	for offset < len(data) {
		key, n, err := readField(data[offset:])
		if err != nil {
			return nil, err
		}
		offset += n
		value, n, err := readField(data[offset:])
		if err != nil {
			return nil, err
		}
		offset += n
		records = append(records, spill.Record{Key: key, Value: value})
	}
	return records, nil
}

func readField(data []byte) (interface{}, int, error) {
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("Truncated field header")
	}
	tag := data[0]
	length := int(binary.BigEndian.Uint32(data[1:5]))
	if len(data) < 5+length {
		return nil, 0, fmt.Errorf("Truncated field body: want %d bytes, have %d", length, len(data)-5)
	}
	body := data[5 : 5+length]
	switch tag {
	case tagInt64, tagUint64, tagFloat64:
		if length != 8 {
			return nil, 0, fmt.Errorf("Malformed field body: tag %d wants 8 bytes, have %d", tag, length)
		}
	case tagBool:
		if length != 1 {
			return nil, 0, fmt.Errorf("Malformed field body: tag %d wants 1 byte, have %d", tag, length)
		}
	}
	switch tag {
	case tagBytes:
		out := make([]byte, length)
		copy(out, body)
		return out, 5 + length, nil
	case tagString:
		return string(body), 5 + length, nil
	case tagInt64:
		return int64(binary.BigEndian.Uint64(body)), 5 + length, nil
	case tagUint64:
		return binary.BigEndian.Uint64(body), 5 + length, nil
	case tagFloat64:
		return math.Float64frombits(binary.BigEndian.Uint64(body)), 5 + length, nil
	case tagBool:
		return body[0] == 1, 5 + length, nil
	default:
		return nil, 0, fmt.Errorf("Unknown field tag %d", tag)
	}
}

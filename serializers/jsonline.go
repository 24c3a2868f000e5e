package serializers

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/go-spill/spill"
	"github.com/tidwall/gjson"
)

// jsonLineSerializer is a Serializer which encodes one JSON object per record.
// Keys and values may be anything encoding/json can marshal. The decode path
// uses https://github.com/tidwall/gjson, so readers can address fields with
// gjson paths without deserializing whole lines.
type jsonLineSerializer struct{}

type jsonLineRecord struct {
	Key   interface{} `json:"k"`
	Value interface{} `json:"v"`
}

// CreateJSONLineSerializer produces a JSON-lines Serializer
func CreateJSONLineSerializer() spill.Serializer {
	return &jsonLineSerializer{}
}

// OpenEncoder produces a RecordEncoder targeting w
func (s *jsonLineSerializer) OpenEncoder(w io.Writer) spill.RecordEncoder {
	return &jsonLineEncoder{enc: json.NewEncoder(w)}
}

type jsonLineEncoder struct {
	enc *json.Encoder
}

// Encode serializes a single Record as one JSON line
func (e *jsonLineEncoder) Encode(rec spill.Record) error {
	return e.enc.Encode(jsonLineRecord{Key: rec.Key, Value: rec.Value})
}

// Flush materializes any bytes buffered within the encoder. json.Encoder
// writes through, so this is a no-op.
func (e *jsonLineEncoder) Flush() error {
	return nil
}

// Close releases encoder resources
func (e *jsonLineEncoder) Close() error {
	return nil
}

// DecodeJSONLineRecords restores Records from a block produced via
// CreateJSONLineSerializer. JSON numbers decode as float64.
func DecodeJSONLineRecords(data []byte) ([]spill.Record, error) {
	var records []spill.Record
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		key := gjson.GetBytes(line, "k")
		value := gjson.GetBytes(line, "v")
		records = append(records, spill.Record{Key: key.Value(), Value: value.Value()})
	}
	return records, nil
}

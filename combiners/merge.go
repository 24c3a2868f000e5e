// Package combiners provides map-side combine implementations for Spill
// writers. A combiner pre-merges records sharing a key before they reach
// partition routing, shrinking the byte volume written per distinct key.
package combiners

import (
	"fmt"

	"github.com/go-spill/spill"
	errors "github.com/go-spill/spill/errors"
	iutil "github.com/go-spill/spill/internal/util"
)

// mergeCombiner groups records by key and folds values sharing a key with a
// MergeOperation, emitting one record per distinct key in first-seen order
type mergeCombiner struct {
	merge spill.MergeOperation
}

// CreateMergeCombiner produces a Combiner which folds values sharing a key
// with the supplied MergeOperation
func CreateMergeCombiner(merge spill.MergeOperation) spill.Combiner {
	return &mergeCombiner{merge: merge}
}

// Combine consumes a record stream and produces a merged one
func (c *mergeCombiner) Combine(records spill.RecordIterator) spill.RecordIterator {
	return &mergingIterator{merge: c.merge, input: records}
}

type mergingIterator struct {
	merge  spill.MergeOperation
	input  spill.RecordIterator
	merged []spill.Record
	err    error
	ready  bool
	next   int
}

// consume drains the input stream into an insertion-ordered set of merged
// records. Keys are bucketed by their stable byte representation so that
// non-comparable key types (e.g. []byte) group correctly.
func (mi *mergingIterator) consume() {
	mi.ready = true
	index := make(map[string]int)
	for mi.input.HasNextRecord() {
		rec, err := mi.input.NextRecord()
		if err != nil {
			mi.err = err
			return
		}
		keyBuf, err := iutil.KeyBytes(rec.Key)
		if err != nil {
			keyBuf = []byte(fmt.Sprintf("%v", rec.Key))
		}
		if pos, ok := index[string(keyBuf)]; ok {
			mergedValue, err := mi.merge(mi.merged[pos].Value, rec.Value)
			if err != nil {
				mi.err = err
				return
			}
			mi.merged[pos].Value = mergedValue
		} else {
			index[string(keyBuf)] = len(mi.merged)
			mi.merged = append(mi.merged, rec)
		}
	}
}

// HasNextRecord returns true iff this RecordIterator can produce another Record
func (mi *mergingIterator) HasNextRecord() bool {
	if !mi.ready {
		mi.consume()
	}
	return mi.err != nil || mi.next < len(mi.merged)
}

// NextRecord returns the next merged Record if one is available, or an error
func (mi *mergingIterator) NextRecord() (spill.Record, error) {
	if !mi.ready {
		mi.consume()
	}
	if mi.err != nil {
		return spill.Record{}, mi.err
	}
	if mi.next >= len(mi.merged) {
		return spill.Record{}, errors.NoMoreRecordsError{}
	}
	rec := mi.merged[mi.next]
	mi.next++
	return rec, nil
}

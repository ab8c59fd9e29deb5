package reduce

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// VariantRecord is the durable verdict for one transformation variant,
// keyed by the variant's content hash.
type VariantRecord struct {
	// Interesting reports whether the oracle accepted the variant.
	Interesting bool `msgpack:"i"`
	// Size is the variant's source size in bytes.
	Size int `msgpack:"s"`
	// Source is the snappy-compressed variant text, retained so a cached
	// winning variant can be replayed without re-running the transformation.
	Source []byte `msgpack:"src,omitempty"`
}

// NewVariantRecord builds a record for src with the given verdict.
func NewVariantRecord(src []byte, interesting bool) *VariantRecord {
	return &VariantRecord{
		Interesting: interesting,
		Size:        len(src),
		Source:      SnappyCompress(nil, src),
	}
}

// DecodeSource returns the variant's uncompressed source text.
func (r *VariantRecord) DecodeSource() ([]byte, error) {
	if len(r.Source) == 0 {
		return nil, nil
	}
	src, err := SnappyDecompress(nil, r.Source)
	if err != nil {
		return nil, fmt.Errorf("decompress variant source failed: %w", err)
	}
	return src, nil
}

// MarshalBlob encodes the record for storage.
func (r *VariantRecord) MarshalBlob() ([]byte, error) {
	blob, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode variant record failed: %w", err)
	}
	return blob, nil
}

// UnmarshalVariantRecord decodes a stored record blob.
func UnmarshalVariantRecord(blob []byte) (*VariantRecord, error) {
	var record VariantRecord
	if err := msgpack.Unmarshal(blob, &record); err != nil {
		return nil, fmt.Errorf("decode variant record failed: %w", err)
	}
	return &record, nil
}

// RoundReport records one accepted variant during a reduction run.
type RoundReport struct {
	// Round is the 1-based round number.
	Round int `json:"round"`
	// Instance is the transformation instance that produced the accepted variant.
	Instance int `json:"instance"`
	// Candidates is how many instances existed at the start of the round.
	Candidates int `json:"candidates"`
	// Size is the source size in bytes after adopting the variant.
	Size int `json:"size"`
	// CacheHits counts candidate verdicts answered from the cache this round.
	CacheHits int `json:"cache_hits"`
}

// ReductionReport summarizes one reduction engine run.
type ReductionReport struct {
	FileName       string        `json:"file_name"`
	Transformation string        `json:"transformation"`
	OriginalSize   int           `json:"original_size"`
	FinalSize      int           `json:"final_size"`
	Rounds         []RoundReport `json:"rounds"`
	ElapsedMs      int64         `json:"elapsed_ms"`
	// Diff is the unified diff from the original source to the final variant.
	Diff string `json:"diff,omitempty"`
}

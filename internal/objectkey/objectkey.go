// Package objectkey derives object-store keys for segments and their
// indexes from a configured prefix and segment identity (spec §3/§6).
package objectkey

import (
	"fmt"

	"github.com/kenneth/tiered-segment-store/internal/segment"
)

// LogSuffix and ManifestSuffix are the two non-index object suffixes
// persisted per segment.
const (
	LogSuffix      = "log"
	ManifestSuffix = "rsm-manifest"
)

// suffixByIndexType maps each IndexType to its object-key file suffix
// (spec §6 object key layout).
var suffixByIndexType = map[segment.IndexType]string{
	segment.IndexOffset:           "index",
	segment.IndexTimestamp:        "timeindex",
	segment.IndexProducerSnapshot: "snapshot",
	segment.IndexTransaction:      "txnindex",
	segment.IndexLeaderEpoch:      "leader-epoch-checkpoint",
}

// IndexSuffix returns the object-key suffix for the given index type.
func IndexSuffix(t segment.IndexType) (string, bool) {
	s, ok := suffixByIndexType[t]
	return s, ok
}

// Build renders the object key for one suffix of a segment:
// {prefix}/{topic}-{partition}/{segment_base_offset}-{uuid}.{suffix}
func Build(prefix string, id segment.ID, suffix string) string {
	return fmt.Sprintf("%s/%s-%d/%d-%s.%s", prefix, id.Topic, id.Partition, id.BaseOffset, id.UUID, suffix)
}

// LogKey returns the LOG object key for a segment.
func LogKey(prefix string, id segment.ID) string {
	return Build(prefix, id, LogSuffix)
}

// ManifestKey returns the MANIFEST object key for a segment.
func ManifestKey(prefix string, id segment.ID) string {
	return Build(prefix, id, ManifestSuffix)
}

// IndexKey returns the object key for one index file of a segment.
func IndexKey(prefix string, id segment.ID, t segment.IndexType) (string, bool) {
	suffix, ok := IndexSuffix(t)
	if !ok {
		return "", false
	}
	return Build(prefix, id, suffix), true
}

// AllSuffixes enumerates every object key known for a segment (LOG,
// every index, MANIFEST), for use by delete-log-segment-data (spec §3
// lifecycle: "removes every object with the known suffixes").
func AllSuffixes(prefix string, id segment.ID) []string {
	keys := make([]string, 0, len(suffixByIndexType)+2)
	keys = append(keys, LogKey(prefix, id))
	for _, t := range segment.AllIndexTypes() {
		k, _ := IndexKey(prefix, id, t)
		keys = append(keys, k)
	}
	keys = append(keys, ManifestKey(prefix, id))
	return keys
}

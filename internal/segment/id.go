// Package segment defines the identity of a log segment and the index
// types that accompany it in tiered storage.
package segment

import (
	"fmt"

	"github.com/google/uuid"
)

// NewUUID mints a fresh segment UUID. The host calls this once per
// segment, before its first CopyLogSegment call, and reuses the
// resulting ID for every later fetch/delete on that segment.
func NewUUID() string {
	return uuid.NewString()
}

// ID uniquely identifies a segment: topic-partition plus base offset and
// a UUID minted at copy-in time (spec §3).
type ID struct {
	Topic      string
	Partition  int32
	BaseOffset int64
	UUID       string
}

// String renders the identity for logging.
func (id ID) String() string {
	return fmt.Sprintf("%s-%d/%d-%s", id.Topic, id.Partition, id.BaseOffset, id.UUID)
}

// IndexType enumerates the auxiliary index files persisted alongside a
// segment's LOG object (spec §3/§6).
type IndexType string

const (
	IndexOffset           IndexType = "OFFSET"
	IndexTimestamp        IndexType = "TIMESTAMP"
	IndexProducerSnapshot IndexType = "PRODUCER_SNAPSHOT"
	IndexTransaction      IndexType = "TRANSACTION"
	IndexLeaderEpoch      IndexType = "LEADER_EPOCH"
)

// AllIndexTypes lists every recognized index type in a stable order.
func AllIndexTypes() []IndexType {
	return []IndexType{IndexOffset, IndexTimestamp, IndexProducerSnapshot, IndexTransaction, IndexLeaderEpoch}
}

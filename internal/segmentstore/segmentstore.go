// Package segmentstore is the package's front door: it composes the
// chunk index, envelope crypto, transform pipeline, manifest, manifest
// cache, chunk cache, chunk manager, and range assembler into the host
// remote-storage surface (spec §4.L).
package segmentstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kenneth/tiered-segment-store/internal/chunkcache"
	"github.com/kenneth/tiered-segment-store/internal/chunkindex"
	"github.com/kenneth/tiered-segment-store/internal/chunkmanager"
	"github.com/kenneth/tiered-segment-store/internal/config"
	"github.com/kenneth/tiered-segment-store/internal/envelope"
	"github.com/kenneth/tiered-segment-store/internal/hwaccel"
	"github.com/kenneth/tiered-segment-store/internal/manifest"
	"github.com/kenneth/tiered-segment-store/internal/manifestcache"
	"github.com/kenneth/tiered-segment-store/internal/metrics"
	"github.com/kenneth/tiered-segment-store/internal/objectkey"
	"github.com/kenneth/tiered-segment-store/internal/objectstore"
	"github.com/kenneth/tiered-segment-store/internal/rangeassembler"
	"github.com/kenneth/tiered-segment-store/internal/segment"
	"github.com/kenneth/tiered-segment-store/internal/transform"
)

// ErrMissingIndex is returned by FetchIndex for any index type other
// than TRANSACTION whose object does not exist (spec §6/§9).
var ErrMissingIndex = errors.New("segmentstore: index object not found")

var errMissingUUID = errors.New("segment id has no uuid")

// Store implements the host remote-storage surface (spec §6).
type Store struct {
	objects  objectstore.Store
	cfg      config.Config
	keyPair  *envelope.KeyPair // nil when encryption is disabled
	manifest *manifestcache.Cache
	chunks   *chunkcache.Cache
	log      *logrus.Entry
	counters metrics.CacheCounters
}

// New builds a Store. keyPair must be non-nil when cfg.EncryptionEnabled
// is true; it is ignored otherwise.
func New(objects objectstore.Store, cfg config.Config, keyPair *envelope.KeyPair, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Store{objects: objects, cfg: cfg, keyPair: keyPair, log: log}
	s.log.WithFields(hwaccel.Info()).Debug("segment store starting")

	s.manifest = manifestcache.New(s.fetchManifest, cfg.ManifestCacheSize, toDuration(cfg.ManifestCacheRetentionMs))
	s.chunks = chunkcache.New(chunkcache.Options{
		MaxBytes: cfg.ChunkCacheSize,
		TTL:      toDuration(cfg.ChunkCacheRetentionMs),
		DiskRoot: cfg.ChunkCachePath,
		Logger:   log,
	})
	return s
}

// Metrics returns a point-in-time snapshot of the store's crypto-op and
// compression-byte counters (spec §4.N).
func (s *Store) Metrics() metrics.CacheSnapshot {
	return s.counters.Snapshot()
}

// toDuration converts a millisecond count using the spec's -1-means-
// unbounded convention into a time.Duration using the caches' own
// zero-means-unbounded convention.
func toDuration(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// CopyLogSegment runs the write path (chunk -> optional compress ->
// optional encrypt), uploads the LOG object, uploads every index
// unchanged, and finally uploads the manifest (spec §4.L). id.UUID must
// already be set by the caller: the host mints the segment's identity
// before calling copy_log_segment, so every later fetch/delete call on
// the same id addresses the same objects.
func (s *Store) CopyLogSegment(ctx context.Context, id segment.ID, data io.Reader, indexes map[segment.IndexType]io.Reader) error {
	if id.UUID == "" {
		return fmt.Errorf("segmentstore: copy log segment for %s: %w", id, errMissingUUID)
	}

	compress, peeked, err := s.decideCompression(data)
	if err != nil {
		return err
	}
	data = peeked

	var stage transform.Stage = transform.NewBaseChunker(data, s.cfg.ChunkSize)

	if compress {
		c, err := transform.NewCompress(stage, &s.counters)
		if err != nil {
			return err
		}
		stage = c
	}

	var encMeta *manifest.EncryptionMetadata
	logKey := objectkey.LogKey(s.cfg.KeyPrefix, id)
	if s.cfg.EncryptionEnabled {
		dataKey, err := envelope.GenerateDataKey()
		if err != nil {
			return err
		}
		provider, err := envelope.NewCipherProvider(dataKey)
		if err != nil {
			return err
		}
		aad := []byte(logKey)
		stage = transform.NewEncrypt(stage, provider, aad, &s.counters)

		wrapped, err := s.keyPair.WrapKey(dataKey)
		if err != nil {
			return err
		}
		encMeta = &manifest.EncryptionMetadata{WrappedDataKey: wrapped, AAD: aad}
	}

	finisher := transform.NewFinisher(stage)
	var logBody bytes.Buffer
	if err := finisher.Finish(&logBody); err != nil {
		return fmt.Errorf("segmentstore: write-path transform for %s: %w", id, err)
	}
	chunkIdx, err := finisher.ChunkIndex()
	if err != nil {
		return err
	}

	if err := s.objects.Upload(ctx, logKey, &logBody); err != nil {
		return fmt.Errorf("segmentstore: upload log for %s: %w", id, err)
	}

	indexSizes, err := s.uploadIndexes(ctx, id, indexes)
	if err != nil {
		return err
	}

	mf := manifest.New(chunkIdx, compress, encMeta, indexSizes)
	wire, err := manifest.Marshal(mf)
	if err != nil {
		return err
	}
	manifestKey := objectkey.ManifestKey(s.cfg.KeyPrefix, id)
	if err := s.objects.Upload(ctx, manifestKey, bytes.NewReader(wire)); err != nil {
		return fmt.Errorf("segmentstore: upload manifest for %s: %w", id, err)
	}
	return nil
}

// decideCompression inspects the head of data to apply the compression
// heuristic (spec §6/§7), returning whether to compress and a reader
// that still yields every byte of data, including the bytes consumed
// while sniffing.
func (s *Store) decideCompression(data io.Reader) (compress bool, reassembled io.Reader, err error) {
	if !s.cfg.CompressionEnabled {
		return false, data, nil
	}
	if !s.cfg.CompressionHeuristicEnabled {
		return true, data, nil
	}

	const sniffLen = 32
	head := make([]byte, sniffLen)
	n, readErr := io.ReadFull(data, head)
	head = head[:n]
	reassembled = io.MultiReader(bytes.NewReader(head), data)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return false, reassembled, fmt.Errorf("segmentstore: read segment head for compression sniff: %w", readErr)
	}

	alreadyCompressed, ok := transform.SniffAlreadyCompressed(head)
	if !ok {
		s.log.Warn("compression heuristic: segment too short to sniff, uploading uncompressed")
		return false, reassembled, nil
	}
	return !alreadyCompressed, reassembled, nil
}

func (s *Store) uploadIndexes(ctx context.Context, id segment.ID, indexes map[segment.IndexType]io.Reader) (map[string]int64, error) {
	type result struct {
		name string
		size int64
	}
	results := make(chan result, len(indexes))

	g, gctx := errgroup.WithContext(ctx)
	for indexType, r := range indexes {
		indexType, r := indexType, r
		g.Go(func() error {
			key, ok := objectkey.IndexKey(s.cfg.KeyPrefix, id, indexType)
			if !ok {
				return fmt.Errorf("segmentstore: unknown index type %q", indexType)
			}
			body, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("segmentstore: read %s index body: %w", indexType, err)
			}
			if err := s.objects.Upload(gctx, key, bytes.NewReader(body)); err != nil {
				return fmt.Errorf("segmentstore: upload %s index: %w", indexType, err)
			}
			results <- result{name: string(indexType), size: int64(len(body))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	sizes := make(map[string]int64, len(indexes))
	for r := range results {
		sizes[r.name] = r.size
	}
	return sizes, nil
}

// FetchLogSegment returns the plaintext bytes of the segment from start
// to its last byte, inclusive.
func (s *Store) FetchLogSegment(ctx context.Context, id segment.ID, start int64) (io.ReadCloser, error) {
	mf, err := s.loadManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	end := int64(mf.ChunkIndex.TotalOriginalSize()) - 1
	return s.fetchRange(ctx, id, mf, start, end)
}

// FetchLogSegmentRange returns the plaintext bytes of the segment's
// inclusive [start, end] range (the two-argument form of fetch_log_segment).
func (s *Store) FetchLogSegmentRange(ctx context.Context, id segment.ID, start, end int64) (io.ReadCloser, error) {
	mf, err := s.loadManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fetchRange(ctx, id, mf, start, end)
}

func (s *Store) fetchRange(ctx context.Context, id segment.ID, mf *manifest.Manifest, start, end int64) (io.ReadCloser, error) {
	logKey := objectkey.LogKey(s.cfg.KeyPrefix, id)
	manifestKey := objectkey.ManifestKey(s.cfg.KeyPrefix, id)

	var unwrap chunkmanager.KeyUnwrapper
	if mf.Encryption != nil {
		unwrap = s.keyPair.UnwrapKey
	}
	fetcher := chunkmanager.New(s.objects, logKey, mf, unwrap, &s.counters)
	assembler := rangeassembler.New(mf.ChunkIndex, manifestKey, s.chunks, fetcher)

	return assembler.AssembleRange(ctx, chunkindex.BytesRange{From: uint64(start), To: uint64(end)})
}

// FetchIndex returns the raw bytes of one index object. A missing
// TRANSACTION index yields (nil, nil); any other missing index yields
// ErrMissingIndex (spec §9 open question, preserved).
func (s *Store) FetchIndex(ctx context.Context, id segment.ID, indexType segment.IndexType) (io.ReadCloser, error) {
	key, ok := objectkey.IndexKey(s.cfg.KeyPrefix, id, indexType)
	if !ok {
		return nil, fmt.Errorf("segmentstore: unknown index type %q", indexType)
	}
	r, err := s.objects.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			if indexType == segment.IndexTransaction {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingIndex, key)
		}
		return nil, fmt.Errorf("segmentstore: fetch index %s: %w", key, err)
	}
	return r, nil
}

// DeleteLogSegmentData removes every object with a known suffix for id,
// tolerating objects that are already absent.
func (s *Store) DeleteLogSegmentData(ctx context.Context, id segment.ID) error {
	manifestKey := objectkey.ManifestKey(s.cfg.KeyPrefix, id)
	for _, key := range objectkey.AllSuffixes(s.cfg.KeyPrefix, id) {
		if err := s.objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("segmentstore: delete %s: %w", key, err)
		}
	}
	s.manifest.Invalidate(manifestKey)
	return nil
}

// Close flushes the chunk cache's disk files and releases its background
// resources.
func (s *Store) Close() error {
	return s.chunks.Close()
}

func (s *Store) loadManifest(ctx context.Context, id segment.ID) (*manifest.Manifest, error) {
	key := objectkey.ManifestKey(s.cfg.KeyPrefix, id)
	return s.manifest.Get(ctx, key)
}

func (s *Store) fetchManifest(ctx context.Context, key string) (*manifest.Manifest, error) {
	r, err := s.objects.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("segmentstore: read manifest %s: %w", key, err)
	}
	return manifest.Unmarshal(body)
}

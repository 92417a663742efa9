// Command loadtest drives synthetic copy/fetch traffic directly against a
// segmentstore.Store, the same way the teacher's load driver exercised its
// HTTP gateway, minus the transport: here every worker calls the Go API
// in-process against either the in-memory store or a real S3 bucket.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/tiered-segment-store/internal/config"
	"github.com/kenneth/tiered-segment-store/internal/envelope"
	"github.com/kenneth/tiered-segment-store/internal/objectstore"
	"github.com/kenneth/tiered-segment-store/internal/objectstore/memstore"
	"github.com/kenneth/tiered-segment-store/internal/objectstore/s3store"
	"github.com/kenneth/tiered-segment-store/internal/segment"
	"github.com/kenneth/tiered-segment-store/internal/segmentstore"
)

func main() {
	var (
		backend    = flag.String("backend", "memory", "object store backend: memory or s3")
		provider   = flag.String("provider", "", "s3 endpoint preset (aws, minio, garage, wasabi, backblaze, cloudflare); overrides -endpoint defaults")
		bucket     = flag.String("bucket", "loadtest", "s3 bucket name")
		region     = flag.String("region", "us-east-1", "s3 region")
		endpoint   = flag.String("endpoint", "", "s3-compatible endpoint (blank uses the provider preset or real AWS)")
		accessKey  = flag.String("access-key", "", "s3 access key")
		secretKey  = flag.String("secret-key", "", "s3 secret key")
		workers    = flag.Int("workers", 4, "number of concurrent worker goroutines")
		duration   = flag.Duration("duration", 30*time.Second, "how long to run")
		objectSize = flag.Int("object-size", 4*1024*1024, "plaintext segment size in bytes")
		chunkSize  = flag.Int("chunk-size", 64*1024, "chunk size in bytes")
		encrypt    = flag.Bool("encrypt", true, "enable envelope encryption")
		compress   = flag.Bool("compress", true, "enable zstd compression")
		verbose    = flag.Bool("verbose", false, "debug-level logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logrus.NewEntry(logger)

	store, err := buildObjectStore(*backend, *provider, *bucket, *region, *endpoint, *accessKey, *secretKey)
	if err != nil {
		log.Fatalf("build object store: %v", err)
	}

	cfg := config.Default()
	cfg.ChunkSize = uint32(*chunkSize)
	cfg.CompressionEnabled = *compress
	cfg.EncryptionEnabled = *encrypt

	var keyPair *envelope.KeyPair
	if cfg.EncryptionEnabled {
		keyPair, err = envelope.GenerateKeyPair()
		if err != nil {
			log.Fatalf("generate keypair: %v", err)
		}
	}

	ss := segmentstore.New(store, cfg, keyPair, log)
	defer ss.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("received interrupt, stopping workers")
		cancel()
	}()

	var copies, fetches, bytesCopied, bytesFetched int64
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runWorker(ctx, ss, worker, *objectSize, log, &copies, &fetches, &bytesCopied, &bytesFetched)
		}(w)
	}
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	log.Infof("done: %d copies (%d bytes), %d fetches (%d bytes) over %.1fs",
		atomic.LoadInt64(&copies), atomic.LoadInt64(&bytesCopied),
		atomic.LoadInt64(&fetches), atomic.LoadInt64(&bytesFetched), elapsed)
}

func runWorker(ctx context.Context, ss *segmentstore.Store, worker, objectSize int, log *logrus.Entry, copies, fetches, bytesCopied, bytesFetched *int64) {
	rng := rand.New(rand.NewSource(int64(worker) + time.Now().UnixNano()))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		id := segment.ID{Topic: "loadtest", Partition: int32(worker), BaseOffset: rng.Int63n(1 << 30), UUID: segment.NewUUID()}
		payload := make([]byte, objectSize)
		rng.Read(payload)

		if err := ss.CopyLogSegment(ctx, id, bytes.NewReader(payload), nil); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("copy failed")
			continue
		}
		atomic.AddInt64(copies, 1)
		atomic.AddInt64(bytesCopied, int64(objectSize))

		r, err := ss.FetchLogSegment(ctx, id, 0)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("fetch failed")
			continue
		}
		n, _ := io.Copy(io.Discard, r)
		r.Close()
		atomic.AddInt64(fetches, 1)
		atomic.AddInt64(bytesFetched, n)
	}
}

func buildObjectStore(backend, provider, bucket, region, endpoint, accessKey, secretKey string) (objectstore.Store, error) {
	switch backend {
	case "memory":
		return memstore.New(), nil
	case "s3":
		cfg := s3store.Config{Bucket: bucket, Region: region, Endpoint: endpoint, AccessKey: accessKey, SecretKey: secretKey}
		if provider != "" {
			resolved, err := s3store.ResolvePreset(provider, cfg)
			if err != nil {
				return nil, err
			}
			cfg = resolved
		}
		return s3store.New(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q (want memory or s3)", backend)
	}
}

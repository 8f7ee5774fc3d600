package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ArchiverConfig tunes how an Archiver drives its backing Store.
type ArchiverConfig struct {
	// Concurrency caps how many uploads UploadAll runs at once. 0 means 4.
	// Download is not bounded by it.
	Concurrency int
	// BytesPerSec rate-limits upload/download throughput against the
	// backend. 0 means unlimited.
	BytesPerSec int
	// Compress wraps each upload in LZ4 framing before it reaches the
	// backend, and unwraps it transparently on read.
	Compress bool
}

// Archiver drives a Store with bounded concurrency and an optional
// upload/download rate limit, and optionally compresses blobs on the
// wire with LZ4.
type Archiver struct {
	store    Store
	limiter  *rate.Limiter
	sem      int
	compress bool
}

// NewArchiver wraps store with the given config.
func NewArchiver(store Store, cfg ArchiverConfig) *Archiver {
	sem := cfg.Concurrency
	if sem <= 0 {
		sem = 4
	}
	var limiter *rate.Limiter
	if cfg.BytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.BytesPerSec), cfg.BytesPerSec)
	}
	return &Archiver{store: store, limiter: limiter, sem: sem, compress: cfg.Compress}
}

// UploadAll uploads every (name, data) pair concurrently, bounded by the
// Archiver's configured concurrency, aborting the whole batch on the
// first failure.
func (a *Archiver) UploadAll(ctx context.Context, blobs map[string][]byte) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.sem)

	for name, data := range blobs {
		name, data := name, data
		g.Go(func() error {
			if err := a.throttle(ctx, len(data)); err != nil {
				return err
			}
			return a.upload(ctx, name, data)
		})
	}
	return g.Wait()
}

func (a *Archiver) upload(ctx context.Context, name string, data []byte) error {
	w, err := a.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("blobstore: creating %s: %w", name, err)
	}

	var dst io.Writer = w
	var lz4w *lz4.Writer
	if a.compress {
		lz4w = lz4.NewWriter(w)
		dst = writerAdapter{lz4w}
	}

	if _, err := dst.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("blobstore: writing %s: %w", name, err)
	}
	if lz4w != nil {
		if err := lz4w.Close(); err != nil {
			w.Close()
			return fmt.Errorf("blobstore: finishing compression for %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blobstore: finalizing upload of %s: %w", name, err)
	}
	return nil
}

// Download reads name fully into memory, transparently decompressing it
// if the Archiver was configured with Compress.
func (a *Archiver) Download(ctx context.Context, name string) ([]byte, error) {
	b, err := a.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("blobstore: opening %s: %w", name, err)
	}
	defer b.Close()

	if err := a.throttle(ctx, int(b.Size())); err != nil {
		return nil, err
	}

	if a.compress {
		return io.ReadAll(lz4.NewReader(b))
	}
	return io.ReadAll(b)
}

func (a *Archiver) throttle(ctx context.Context, n int) error {
	if a.limiter == nil || n <= 0 {
		return nil
	}
	// WaitN rejects requests larger than the burst, so wait in burst-sized chunks.
	for n > 0 {
		chunk := n
		if b := a.limiter.Burst(); chunk > b {
			chunk = b
		}
		if err := a.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// writerAdapter lets an *lz4.Writer stand in as a plain io.Writer
// without exposing lz4.Writer's own Close semantics to callers that
// should only ever close the underlying WritableBlob.
type writerAdapter struct {
	w *lz4.Writer
}

func (a writerAdapter) Write(p []byte) (int, error) { return a.w.Write(p) }

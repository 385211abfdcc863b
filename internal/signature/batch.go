package signature

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/remiblancher/qsig/internal/crypto"
)

// BatchItem is one independent verification.
type BatchItem struct {
	Key       *crypto.PublicKey
	Algorithm crypto.AlgorithmID
	Flags     VerifyFlags
	Digest    []byte
	Signature []byte
}

// BatchResult is the outcome of one BatchItem. Err is nil when Valid.
type BatchResult struct {
	Valid bool
	Err   error
}

// VerifyBatch verifies items concurrently with at most workers goroutines
// (GOMAXPROCS when workers <= 0). Results are in input order. Once ctx is
// done, items not yet started get ctx.Err() and VerifyBatch returns it.
func VerifyBatch(ctx context.Context, items []BatchItem, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range items {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				results[j] = BatchResult{Err: err}
			}
			break
		}

		item := items[i]
		g.Go(func() error {
			err := Verify(item.Key, item.Algorithm, item.Flags, item.Digest, item.Signature)
			results[i] = BatchResult{Valid: err == nil, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results, ctx.Err()
}

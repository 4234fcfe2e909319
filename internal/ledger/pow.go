package ledger

import (
	"context"
	"math"
	"sync"

	"ticket-ledger/internal/status"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultDifficulty = 2

	// ctxCheckInterval is how many hashes a worker computes between
	// cancellation checks.
	ctxCheckInterval = 1024
)

// Sealer runs the proof-of-work search. With one worker the search is the
// plain sequential scan from nonce 0; with more, worker w scans nonces
// w, w+n, w+2n, ... and the first hit cancels the others.
type Sealer struct {
	Difficulty int
	Workers    int
	// MaxNonce bounds the search to nonces below it. Zero means unbounded.
	MaxNonce uint64
}

// Seal finds a nonce for b that satisfies the difficulty and stores it
// together with the resulting hash. b is left untouched on error.
func (s Sealer) Seal(ctx context.Context, b *Block) error {
	in := newHashInput(b)

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	if workers == 1 {
		nonce, hash, err := s.search(ctx, in, 0, 1)
		if err != nil {
			return err
		}
		b.Nonce, b.Hash = nonce, hash
		return nil
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		found    bool
		wonNonce uint64
		wonHash  string
	)
	step := uint64(workers)
	g, gctx := errgroup.WithContext(searchCtx)
	for w := 0; w < workers; w++ {
		start := uint64(w)
		g.Go(func() error {
			nonce, hash, err := s.search(gctx, in, start, step)
			if err != nil {
				// exhaustion or cancellation; resolved after Wait
				return nil
			}
			once.Do(func() {
				found, wonNonce, wonHash = true, nonce, hash
				cancel()
			})
			return nil
		})
	}
	_ = g.Wait()

	if found {
		b.Nonce, b.Hash = wonNonce, wonHash
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return status.ErrNonceSpaceExhausted
}

func (s Sealer) search(ctx context.Context, in hashInput, start, step uint64) (uint64, string, error) {
	buf := make([]byte, 0, len(in.prefix)+len(in.suffix)+20)
	var tries uint64
	for nonce := start; ; nonce += step {
		if s.MaxNonce > 0 && nonce >= s.MaxNonce {
			return 0, "", status.ErrNonceSpaceExhausted
		}
		if tries%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, "", err
			}
		}
		tries++

		hash := in.digest(nonce, buf)
		if MeetsDifficulty(hash, s.Difficulty) {
			return nonce, hash, nil
		}
		if nonce > math.MaxUint64-step {
			return 0, "", status.ErrNonceSpaceExhausted
		}
	}
}

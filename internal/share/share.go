/*
Package share
File: share.go
Description:
    Ephemeral share links for computed valuations. A Record wraps either a
    single valuation or a batch, plus its lifetime. Records live in a Store:

    - MemoryStore   (go-cache, single process)
    - RedisStore    (go-redis, native key expiry)
    - PostgresStore (pgx, expiry column + periodic cleanup)

    The valuation engine knows nothing about any of this; the HTTP layer
    computes a result and hands it to Service.Create.
*/

package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/everforgeworks/growcalc/internal/catalog"
	"github.com/everforgeworks/growcalc/internal/valuation"
)

var (
	ErrNotFound = errors.New("shared result not found")
	ErrExpired  = errors.New("shared result has expired")
	ErrInvalid  = errors.New("invalid shared result")
)

// Kind distinguishes single and batch shares.
type Kind string

const (
	KindSingle Kind = "single"
	KindBatch  Kind = "batch"
)

// Record is one shared result.
type Record struct {
	ID          string                 `json:"share_id"`
	Kind        Kind                   `json:"type"`
	Single      *valuation.Result      `json:"single,omitempty"`
	WeightRange *catalog.WeightRange   `json:"weight_range,omitempty"` // single shares only
	Batch       *valuation.BatchResult `json:"batch,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	ExpiresAt   time.Time              `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// TotalValue is the headline value of the share.
func (r Record) TotalValue() int64 {
	switch {
	case r.Single != nil:
		return r.Single.TotalValue
	case r.Batch != nil:
		return r.Batch.TotalValue
	}
	return 0
}

func (r Record) validate() error {
	switch r.Kind {
	case KindSingle:
		if r.Single == nil {
			return fmt.Errorf("%w: single share without a result", ErrInvalid)
		}
	case KindBatch:
		if r.Batch == nil {
			return fmt.Errorf("%w: batch share without items", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, r.Kind)
	}
	return nil
}

// Stats counts stored records.
type Stats struct {
	Total   int `json:"total_count"`
	Active  int `json:"active_count"`
	Expired int `json:"expired_count"`
}

// Store persists records. Implementations must be safe for concurrent use.
type Store interface {
	// Put stores r until r.ExpiresAt.
	Put(ctx context.Context, r Record) error
	// Get returns ErrNotFound for unknown ids. Stores without native expiry
	// may return an expired record; Service checks ExpiresAt.
	Get(ctx context.Context, id string) (Record, error)
	// Delete returns ErrNotFound when nothing was removed.
	Delete(ctx context.Context, id string) error
	// Cleanup removes records expired at now and reports how many.
	Cleanup(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
	Close() error
}

// NewID returns a fresh share id of the form share_<unix>_<hash>.
func NewID(now time.Time, payload []byte) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("reading nonce: %w", err)
	}

	h, err := blake2b.New(8, nil)
	if err != nil {
		return "", fmt.Errorf("creating hash: %w", err)
	}
	h.Write(payload)
	h.Write(nonce)

	return fmt.Sprintf("share_%d_%s", now.Unix(), hex.EncodeToString(h.Sum(nil))), nil
}

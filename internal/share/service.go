package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTTL is how long a share link stays valid.
const DefaultTTL = 30 * 24 * time.Hour

// Notifier is told about every new share. Calls are fire-and-forget: they
// run on their own goroutine and their failures never reach the caller.
type Notifier interface {
	ShareCreated(ctx context.Context, r Record, link string)
}

// Publisher fans events out to live listeners (the websocket hub).
type Publisher interface {
	Publish(event string, payload any)
}

// Event names sent to the Publisher.
const (
	EventShareCreated = "share_created"
	EventShareStats   = "share_stats"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier registers a share notification sink.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithPublisher registers a live event sink.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithBaseURL sets the public URL share links are built from.
func WithBaseURL(u string) ServiceOption {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// Service creates, reads and expires shared results on top of a Store.
type Service struct {
	store     Store
	ttl       time.Duration
	baseURL   string
	now       func() time.Time
	notifier  Notifier
	publisher Publisher
}

// NewService returns a Service storing records for ttl.
func NewService(store Store, ttl time.Duration, opts ...ServiceOption) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Link returns the public URL of a share.
func (s *Service) Link(id string) string {
	return s.baseURL + "/share/" + id
}

// Create assigns an id and lifetime to r, stores it and announces it.
func (s *Service) Create(ctx context.Context, r Record) (Record, error) {
	if err := r.validate(); err != nil {
		return Record{}, err
	}

	// 1. Identity and lifetime
	now := s.now().UTC()
	payload, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("encoding share: %w", err)
	}
	id, err := NewID(now, payload)
	if err != nil {
		return Record{}, err
	}
	r.ID = id
	r.CreatedAt = now
	r.ExpiresAt = now.Add(s.ttl)

	// 2. Persist
	if err := s.store.Put(ctx, r); err != nil {
		return Record{}, fmt.Errorf("storing share: %w", err)
	}
	slog.Info("share created", "share_id", r.ID, "type", r.Kind, "total_value", r.TotalValue())

	// 3. Side channels
	if s.notifier != nil {
		go s.notifier.ShareCreated(context.WithoutCancel(ctx), r, s.Link(r.ID))
	}
	if s.publisher != nil {
		s.publisher.Publish(EventShareCreated, map[string]any{
			"share_id":    r.ID,
			"type":        r.Kind,
			"total_value": r.TotalValue(),
			"link":        s.Link(r.ID),
		})
	}
	return r, nil
}

// Get returns a live share. Expired records are deleted and reported as ErrExpired.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if r.Expired(s.now()) {
		if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			slog.Warn("deleting expired share", "share_id", id, "err", err)
		}
		return Record{}, ErrExpired
	}
	return r, nil
}

// Delete removes a share.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Cleanup removes every expired share.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	return s.store.Cleanup(ctx, s.now())
}

// Stats counts stored shares.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx, s.now())
}

// RunJanitor purges expired shares every interval until ctx is done, and
// publishes fresh stats after each pass that removed something. A
// non-positive interval disables the sweep.
func (s *Service) RunJanitor(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		slog.Info("share janitor disabled")
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := s.Cleanup(ctx)
			if err != nil {
				slog.Error("share cleanup", "err", err)
				continue
			}
			if removed == 0 {
				continue
			}
			slog.Info("share cleanup", "removed", removed)

			if s.publisher == nil {
				continue
			}
			st, err := s.Stats(ctx)
			if err != nil {
				slog.Error("share stats", "err", err)
				continue
			}
			s.publisher.Publish(EventShareStats, st)
		}
	}
}

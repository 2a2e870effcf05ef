// Package store holds the four LMS collections in memory and keeps them in
// sync with a durable key-value collaborator.
//
// Writers go through Update, which mutates a clone and commits it only after
// every touched collection has been persisted. Multi-process convergence is
// polling based: callers invoke Refresh on an interval, so readers may observe
// state up to one interval stale.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// Durable is the persistence port: one opaque payload per key.
// Get returns appErrors.ErrSlotNotFound when the key holds nothing.
type Durable interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// Observer receives store instrumentation events.
type Observer interface {
	ObserveSlotLoad(kind string, outcome string)
	ObserveRefresh(changed bool)
}

// Slot load outcomes reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeMissing   = "missing"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Options configures a Store.
type Options struct {
	KeyPrefix string
	Logger    *zap.Logger
	Observer  Observer
}

// Store is the single source of truth for courses, assignments, enrollments and progress records.
type Store struct {
	durable  Durable
	prefix   string
	logger   *zap.Logger
	observer Observer

	mu      sync.RWMutex
	state   Snapshot
	version uint64
}

// New constructs an empty store; call Load to populate it.
func New(durable Durable, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "lms"
	}
	return &Store{
		durable:  durable,
		prefix:   opts.KeyPrefix,
		logger:   opts.Logger,
		observer: opts.Observer,
		state:    emptySnapshot(),
	}
}

// Key returns the durable key for a collection.
func (s *Store) Key(kind Kind) string {
	return fmt.Sprintf("%s:%s", s.prefix, kind)
}

// Version increases every time the held state changes.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Load replaces every collection with what the durable collaborator holds.
// Missing, malformed or unreadable slots become empty collections; the
// returned error only joins transport failures and is informational.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := emptySnapshot()
	var errs []error
	for _, kind := range Kinds {
		if err := s.loadKind(ctx, &next, kind); err != nil {
			errs = append(errs, err)
		}
	}
	s.state = next
	s.version++
	return errors.Join(errs...)
}

// Refresh reloads the durable state and swaps in only the collections that
// differ from the held ones. The held state is untouched on transport errors.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := emptySnapshot()
	for _, kind := range Kinds {
		if err := s.loadKind(ctx, &fresh, kind); err != nil {
			return false, err
		}
	}

	changed := false
	for _, kind := range Kinds {
		if reflect.DeepEqual(kindValue(s.state, kind), kindValue(fresh, kind)) {
			continue
		}
		copyKind(&s.state, fresh, kind)
		changed = true
		s.logger.Debug("store collection refreshed", zap.String("collection", string(kind)))
	}
	if changed {
		s.version++
	}
	if s.observer != nil {
		s.observer.ObserveRefresh(changed)
	}
	return changed, nil
}

// Save writes the held collection of the given kind to the durable collaborator.
func (s *Store) Save(ctx context.Context, kind Kind) error {
	s.mu.RLock()
	payload, err := encodeKind(s.state, kind)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := s.durable.Set(ctx, s.Key(kind), payload); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

// Update runs fn against a private copy of the state. When fn succeeds every
// collection it touched is persisted and the copy becomes the new state; if
// fn or any write fails the held state is unchanged and already-written
// collections are restored. Once fn has succeeded the writes ignore caller
// cancellation, so a commit or its rollback is never left half applied.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{Snapshot: s.state.Clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.touched) == 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	wctx := context.WithoutCancel(ctx)
	written := make([]Kind, 0, len(tx.touched))
	for _, kind := range tx.Touched() {
		payload, err := encodeKind(tx.Snapshot, kind)
		if err == nil {
			err = s.durable.Set(wctx, s.Key(kind), payload)
		}
		if err != nil {
			s.rollback(wctx, written)
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to persist %s", kind))
		}
		// Commit the decoded form so the held state equals what Refresh will read back.
		if err := decodeKind(&tx.Snapshot, kind, payload); err != nil {
			s.rollback(wctx, append(written, kind))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to decode %s", kind))
		}
		written = append(written, kind)
	}

	s.state = tx.Snapshot
	s.version++
	return nil
}

func (s *Store) rollback(ctx context.Context, kinds []Kind) {
	for _, kind := range kinds {
		payload, err := encodeKind(s.state, kind)
		if err == nil {
			err = s.durable.Set(ctx, s.Key(kind), payload)
		}
		if err != nil {
			s.logger.Error("store rollback failed", zap.String("collection", string(kind)), zap.Error(err))
		}
	}
}

func (s *Store) loadKind(ctx context.Context, dst *Snapshot, kind Kind) error {
	key := s.Key(kind)
	payload, err := s.durable.Get(ctx, key)
	switch {
	case appErrors.Is(err, appErrors.ErrSlotNotFound):
		setEmpty(dst, kind)
		s.observe(kind, OutcomeMissing)
		return nil
	case err != nil:
		setEmpty(dst, kind)
		s.observe(kind, OutcomeError)
		s.logger.Warn("store slot read failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("load %s: %w", kind, err)
	}

	if err := decodeKind(dst, kind, payload); err != nil {
		setEmpty(dst, kind)
		s.observe(kind, OutcomeMalformed)
		malformed := appErrors.Wrap(err, appErrors.ErrMalformedData.Code, appErrors.ErrMalformedData.Status, "malformed "+string(kind)+" slot")
		s.logger.Warn("store slot malformed, using empty collection",
			zap.String("key", key),
			zap.String("code", malformed.Code),
			zap.Error(err))
		return nil
	}
	s.observe(kind, OutcomeOK)
	return nil
}

func (s *Store) observe(kind Kind, outcome string) {
	if s.observer != nil {
		s.observer.ObserveSlotLoad(string(kind), outcome)
	}
}

// Tx is the mutable copy handed to Update callbacks.
type Tx struct {
	Snapshot
	touched map[Kind]struct{}
}

// Touch marks collections that must be persisted on commit.
func (tx *Tx) Touch(kinds ...Kind) {
	if tx.touched == nil {
		tx.touched = make(map[Kind]struct{}, len(kinds))
	}
	for _, k := range kinds {
		tx.touched[k] = struct{}{}
	}
}

// Touched returns the touched collections in canonical order.
func (tx *Tx) Touched() []Kind {
	out := make([]Kind, 0, len(tx.touched))
	for _, k := range Kinds {
		if _, ok := tx.touched[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Package reminders manages the reminder list and its firing history in the key-value store.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/due"
	"github.com/pathakanu/forgetMeNot/internal/kv"
	"github.com/pathakanu/forgetMeNot/internal/model"
)

// Storage keys.
const (
	KeyReminders    = "reminders"
	KeyLastNotified = "lastNotified"
)

// ErrNotFound is returned when no reminder has the requested ID.
var ErrNotFound = errors.New("reminder not found")

// ValidationError describes a reminder rejected by Validate.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Store is the reminder list kept under KeyReminders.
// Writes are read-modify-write; mu serialises them within the process.
type Store struct {
	mu  sync.Mutex
	kv  kv.Store
	now func() time.Time
}

// New returns a Store backed by store.
func New(store kv.Store) *Store {
	return &Store{kv: store, now: time.Now}
}

// Init writes empty defaults for any key that has never been written.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []model.Reminder
	found, err := s.kv.Get(ctx, KeyReminders, &existing)
	if err != nil {
		return fmt.Errorf("init reminders: %w", err)
	}
	if !found {
		if err := s.kv.Set(ctx, KeyReminders, []model.Reminder{}); err != nil {
			return fmt.Errorf("init reminders: %w", err)
		}
	}

	var last model.LastNotified
	found, err = s.kv.Get(ctx, KeyLastNotified, &last)
	if err != nil {
		return fmt.Errorf("init last notified: %w", err)
	}
	if !found {
		if err := s.kv.Set(ctx, KeyLastNotified, model.LastNotified{}); err != nil {
			return fmt.Errorf("init last notified: %w", err)
		}
	}
	return nil
}

// List returns all reminders in insertion order.
func (s *Store) List(ctx context.Context) ([]model.Reminder, error) {
	var list []model.Reminder
	if _, err := s.kv.Get(ctx, KeyReminders, &list); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	if list == nil {
		list = []model.Reminder{}
	}
	return list, nil
}

// Get returns the reminder with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (model.Reminder, error) {
	list, err := s.List(ctx)
	if err != nil {
		return model.Reminder{}, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reminder{}, ErrNotFound
}

// Add assigns an ID to r from the creation clock and appends it to the list.
// IDs are Unix milliseconds, bumped past the largest existing ID when two
// reminders are created in the same millisecond.
func (s *Store) Add(ctx context.Context, r model.Reminder) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx)
	if err != nil {
		return model.Reminder{}, err
	}

	now := s.now()
	r.ID = now.UnixMilli()
	for _, existing := range list {
		if existing.ID >= r.ID {
			r.ID = existing.ID + 1
		}
	}
	if r.Created.IsZero() {
		r.Created = now.UTC()
	}

	list = append(list, r)
	if err := s.kv.Set(ctx, KeyReminders, list); err != nil {
		return model.Reminder{}, fmt.Errorf("add reminder: %w", err)
	}
	return r, nil
}

// Delete removes the reminder with the given ID along with its firing history.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := list[:0]
	for _, r := range list {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(list) {
		return ErrNotFound
	}
	if err := s.kv.Set(ctx, KeyReminders, kept); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	last, err := s.LastNotified(ctx)
	if err != nil {
		return err
	}
	if _, ok := last[id]; ok {
		delete(last, id)
		return s.saveLastNotified(ctx, last)
	}
	return nil
}

// LastNotified returns the firing history. It is never nil.
func (s *Store) LastNotified(ctx context.Context) (model.LastNotified, error) {
	last := model.LastNotified{}
	if _, err := s.kv.Get(ctx, KeyLastNotified, &last); err != nil {
		return nil, fmt.Errorf("read last notified: %w", err)
	}
	if last == nil {
		last = model.LastNotified{}
	}
	return last, nil
}

// SaveLastNotified replaces the firing history.
func (s *Store) SaveLastNotified(ctx context.Context, last model.LastNotified) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLastNotified(ctx, last)
}

// UpdateLastNotified reads the reminders and the firing history and passes both
// to fn while holding the write lock. The history is saved when fn reports a change.
func (s *Store) UpdateLastNotified(ctx context.Context, fn func(list []model.Reminder, last model.LastNotified) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	last, err := s.LastNotified(ctx)
	if err != nil {
		return err
	}
	if !fn(list, last) {
		return nil
	}
	return s.saveLastNotified(ctx, last)
}

func (s *Store) saveLastNotified(ctx context.Context, last model.LastNotified) error {
	if err := s.kv.Set(ctx, KeyLastNotified, last); err != nil {
		return fmt.Errorf("save last notified: %w", err)
	}
	return nil
}

// Validate checks a reminder submitted by a user.
func Validate(r model.Reminder) error {
	if strings.TrimSpace(r.Text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	start, err := due.ParseClock(r.TimeWindowStart)
	if err != nil {
		return &ValidationError{Field: "timeWindowStart", Reason: err.Error()}
	}
	end, err := due.ParseClock(r.TimeWindowEnd)
	if err != nil {
		return &ValidationError{Field: "timeWindowEnd", Reason: err.Error()}
	}
	if start.Minutes() > end.Minutes() {
		return &ValidationError{Field: "timeWindowEnd", Reason: "must not be before timeWindowStart"}
	}
	if r.Cadence < 1 {
		return &ValidationError{Field: "cadence", Reason: "must be at least 1 minute"}
	}
	return nil
}

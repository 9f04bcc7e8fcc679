// Package session holds the state of one validator's review session: the
// loaded dataset, the record on screen and the bookkeeping needed to decide
// when to save. UI handlers receive a *Session rather than reaching for
// package-level state.
package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/protest-validator/internal/store"
	"github.com/kingrea/protest-validator/internal/submission"
)

// ErrEmpty is returned by cursor operations on a session with no records.
var ErrEmpty = errors.New("session: no submissions loaded")

// ErrNotFound is returned by Seek for an unknown id.
var ErrNotFound = errors.New("session: submission not found")

// Option customizes a Session during construction.
type Option func(*Session)

// WithAutosaveEvery saves after every n decisions. n <= 0 disables autosave.
func WithAutosaveEvery(n int) Option {
	return func(s *Session) {
		s.autosaveEvery = n
	}
}

// WithLogger routes session events to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithWatchedPath records the backing file's fingerprint after each load and
// save so external edits can be told apart from our own writes.
func WithWatchedPath(path string) Option {
	return func(s *Session) {
		s.watchedPath = path
	}
}

// Session is the explicit state shared by review handlers.
type Session struct {
	store   store.Store
	machine *submission.Machine
	log     *zap.Logger

	subs   []submission.Submission
	cursor int

	autosaveEvery  int
	sinceSave      int
	dirty          bool
	watchedPath    string
	knownModTime   time.Time
	knownSize      int64
	lastSaveErr    error
	decisionsTotal int
}

// New builds a session over st using m for every transition.
func New(st store.Store, m *submission.Machine, opts ...Option) *Session {
	s := &Session{
		store:         st,
		machine:       m,
		log:           zap.NewNop(),
		autosaveEvery: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load replaces the in-memory dataset with the store's contents and places the
// cursor on the first pending record.
func (s *Session) Load() error {
	subs, err := s.store.Load()
	if err != nil {
		s.log.Error("load failed", zap.Error(err))
		return err
	}
	classes := s.machine.Classifications()
	for i := range subs {
		if subs[i].Classification == "" {
			continue
		}
		if canonical, err := classes.Canonical(subs[i].Classification); err == nil {
			subs[i].Classification = canonical
		} else {
			s.log.Warn("unknown classification kept as-is",
				zap.String("id", subs[i].ID),
				zap.String("classification", string(subs[i].Classification)))
		}
	}
	s.subs = subs
	s.cursor = 0
	s.dirty = false
	s.sinceSave = 0
	s.rememberFile()
	if idx := s.nextPendingFrom(0); idx >= 0 {
		s.cursor = idx
	}
	s.log.Info("dataset loaded", zap.Int("records", len(subs)), zap.Int("cursor", s.cursor))
	return nil
}

// Len returns the number of loaded submissions.
func (s *Session) Len() int { return len(s.subs) }

// Position returns the zero-based cursor.
func (s *Session) Position() int { return s.cursor }

// Submissions returns a copy of the dataset in insertion order.
func (s *Session) Submissions() []submission.Submission {
	out := make([]submission.Submission, len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.Clone()
	}
	return out
}

// Current returns a copy of the record under the cursor.
func (s *Session) Current() (submission.Submission, error) {
	if len(s.subs) == 0 {
		return submission.Submission{}, ErrEmpty
	}
	return s.subs[s.cursor].Clone(), nil
}

// Next moves the cursor forward, stopping at the last record.
func (s *Session) Next() bool {
	if s.cursor+1 >= len(s.subs) {
		return false
	}
	s.cursor++
	return true
}

// Prev moves the cursor back, stopping at the first record.
func (s *Session) Prev() bool {
	if s.cursor == 0 || len(s.subs) == 0 {
		return false
	}
	s.cursor--
	return true
}

// NextPending moves to the next pending record after the cursor in insertion
// order, wrapping around. It reports false when nothing is pending.
func (s *Session) NextPending() bool {
	if len(s.subs) == 0 {
		return false
	}
	idx := s.nextPendingFrom(s.cursor + 1)
	if idx < 0 {
		return false
	}
	s.cursor = idx
	return true
}

// Seek moves the cursor to the record with id.
func (s *Session) Seek(id string) error {
	for i := range s.subs {
		if s.subs[i].ID == id {
			s.cursor = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Decide applies d to the current record. On success the record is replaced,
// the cursor advances to the next pending record and an autosave may run; a
// failed autosave is returned but the decision stays applied in memory.
func (s *Session) Decide(d submission.Decision) (submission.Submission, error) {
	current, err := s.Current()
	if err != nil {
		return submission.Submission{}, err
	}
	next, err := s.machine.Transition(current, d)
	if err != nil {
		s.log.Info("decision refused", zap.String("id", current.ID), zap.String("target", string(d.Target)), zap.Error(err))
		return current, err
	}
	s.subs[s.cursor] = next
	s.dirty = true
	s.sinceSave++
	s.decisionsTotal++
	s.log.Info("decision recorded",
		zap.String("id", next.ID),
		zap.String("status", string(next.Status)),
		zap.String("classification", string(next.Classification)))
	s.NextPending()
	if s.autosaveEvery > 0 && s.sinceSave >= s.autosaveEvery {
		if err := s.Save(); err != nil {
			return next, err
		}
	}
	return next, nil
}

// SaveDraft records corrections on the current record without deciding it.
func (s *Session) SaveDraft(e submission.Edit) (submission.Submission, error) {
	current, err := s.Current()
	if err != nil {
		return submission.Submission{}, err
	}
	next, err := s.machine.Draft(current, e)
	if err != nil {
		return current, err
	}
	s.subs[s.cursor] = next
	s.dirty = true
	s.log.Debug("draft recorded", zap.String("id", next.ID))
	return next, nil
}

// Save writes the whole dataset through the store.
func (s *Session) Save() error {
	if err := s.store.Save(s.subs); err != nil {
		s.lastSaveErr = err
		s.log.Error("save failed", zap.Error(err))
		return err
	}
	s.lastSaveErr = nil
	s.dirty = false
	s.sinceSave = 0
	s.rememberFile()
	s.log.Info("dataset saved", zap.Int("records", len(s.subs)))
	return nil
}

// Dirty reports whether there are changes not yet saved.
func (s *Session) Dirty() bool { return s.dirty }

// LastSaveError returns the error from the most recent failed save, if the
// dataset has not been saved successfully since.
func (s *Session) LastSaveError() error { return s.lastSaveErr }

// Decisions returns how many decisions were recorded this session.
func (s *Session) Decisions() int { return s.decisionsTotal }

// Summary tallies the in-memory dataset.
func (s *Session) Summary() submission.Summary {
	return submission.Summarize(s.subs)
}

// Classifications exposes the configured classification set.
func (s *Session) Classifications() submission.ClassificationSet {
	return s.machine.Classifications()
}

// ExternallyModified reports whether the watched file differs from what this
// session last loaded or saved.
func (s *Session) ExternallyModified() bool {
	if s.watchedPath == "" {
		return false
	}
	info, err := os.Stat(s.watchedPath)
	if err != nil {
		return !s.knownModTime.IsZero()
	}
	return !info.ModTime().Equal(s.knownModTime) || info.Size() != s.knownSize
}

// AcknowledgeExternalChange accepts the file's current state as known so the
// same change is reported only once.
func (s *Session) AcknowledgeExternalChange() {
	s.rememberFile()
}

func (s *Session) rememberFile() {
	if s.watchedPath == "" {
		return
	}
	info, err := os.Stat(s.watchedPath)
	if err != nil {
		s.knownModTime, s.knownSize = time.Time{}, 0
		return
	}
	s.knownModTime, s.knownSize = info.ModTime(), info.Size()
}

func (s *Session) nextPendingFrom(start int) int {
	n := len(s.subs)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if s.subs[idx].Status == submission.StatusPending {
			return idx
		}
	}
	return -1
}

// Package history keeps the most recent generation results, newest first.
package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/storage"
)

const (
	// StorageKey is where the list is persisted
	StorageKey = "voiceAlchemyGenerationHistory"
	// MaxEntries is the number of entries kept; older ones are dropped
	MaxEntries = 50
)

// Kind identifies the feature that produced an entry
type Kind string

const (
	KindTextToSpeech   Kind = "text-to-speech"
	KindSpeechToSpeech Kind = "speech-to-speech"
	KindSoundEffect    Kind = "sound-fx"
	KindVoiceIsolation Kind = "voice-isolator"
)

// Kinds lists every kind in display order
var Kinds = []Kind{KindTextToSpeech, KindSpeechToSpeech, KindSoundEffect, KindVoiceIsolation}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Entry is one recorded generation. Entries are never modified after Add.
type Entry struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
	// Input summarizes what was submitted: the text, prompt or file name
	Input     string
	VoiceName string
	// AudioURL is a data URI holding the generated audio
	AudioURL  string
	Model     string
	EffectTag string
}

// Draft holds the caller-supplied fields of a new entry
type Draft struct {
	Kind      Kind
	Input     string
	VoiceName string
	AudioURL  string
	Model     string
	EffectTag string
}

// record is the persisted form of an Entry
type record struct {
	ID          string `json:"id"`
	Type        Kind   `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	Input       string `json:"input"`
	VoiceName   string `json:"voiceName,omitempty"`
	AudioURL    string `json:"audioUrl"`
	Model       string `json:"model,omitempty"`
	SoundEffect string `json:"soundEffect,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		ID:          e.ID,
		Type:        e.Kind,
		Timestamp:   e.CreatedAt.UnixMilli(),
		Input:       e.Input,
		VoiceName:   e.VoiceName,
		AudioURL:    e.AudioURL,
		Model:       e.Model,
		SoundEffect: e.EffectTag,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Entry{
		ID:        r.ID,
		Kind:      r.Type,
		CreatedAt: time.UnixMilli(r.Timestamp),
		Input:     r.Input,
		VoiceName: r.VoiceName,
		AudioURL:  r.AudioURL,
		Model:     r.Model,
		EffectTag: r.SoundEffect,
	}
	return nil
}

// Store is the generation history. It is safe for concurrent use.
type Store struct {
	store *storage.Store
	now   func() time.Time
	newID func() string

	loadOnce sync.Once
	mu       sync.Mutex
	entries  []Entry

	subMu  sync.Mutex
	subs   map[int]func([]Entry)
	nextID int
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a history backed by store. The persisted list is read on
// first use.
func New(store *storage.Store, opts ...Option) *Store {
	s := &Store{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
		subs:  make(map[int]func([]Entry)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load() {
	s.loadOnce.Do(func() {
		raw := s.store.Load(StorageKey, "")
		if raw == "" {
			return
		}
		var entries []Entry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			log.Warn().Err(err).Msg("Failed to load generation history, starting empty")
			return
		}
		if len(entries) > MaxEntries {
			entries = entries[:MaxEntries]
		}
		s.entries = entries
	})
}

// persist writes the whole list. Callers hold s.mu.
func (s *Store) persist() {
	data, err := json.Marshal(s.entries)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode generation history")
		return
	}
	s.store.Save(StorageKey, string(data))
}

// Add records a new entry with a fresh id and the current time
func (s *Store) Add(d Draft) Entry {
	s.load()

	s.mu.Lock()
	e := Entry{
		ID:        s.newID(),
		Kind:      d.Kind,
		CreatedAt: s.now(),
		Input:     d.Input,
		VoiceName: d.VoiceName,
		AudioURL:  d.AudioURL,
		Model:     d.Model,
		EffectTag: d.EffectTag,
	}
	next := make([]Entry, 0, min(len(s.entries)+1, MaxEntries))
	next = append(next, e)
	next = append(next, s.entries...)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	s.entries = next
	s.persist()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	log.Debug().Str("id", e.ID).Str("kind", string(e.Kind)).Msg("Added history entry")
	s.notify(snapshot)
	return e
}

// Remove drops the entry with id. Unknown ids leave the list unchanged.
func (s *Store) Remove(id string) {
	s.load()

	s.mu.Lock()
	next := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	s.entries = next
	s.persist()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// Clear removes every entry
func (s *Store) Clear() {
	s.load()

	s.mu.Lock()
	s.entries = []Entry{}
	s.persist()
	s.mu.Unlock()

	s.notify([]Entry{})
}

// Entries returns a copy of the list, newest first
func (s *Store) Entries() []Entry {
	s.load()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.load()

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get returns the entry with id
func (s *Store) Get(id string) (Entry, bool) {
	s.load()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Find resolves id or a unique id prefix
func (s *Store) Find(prefix string) (Entry, error) {
	if e, ok := s.Get(prefix); ok {
		return e, nil
	}

	var matches []Entry
	for _, e := range s.Entries() {
		if len(prefix) > 0 && len(e.ID) >= len(prefix) && e.ID[:len(prefix)] == prefix {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return Entry{}, fmt.Errorf("history entry %q not found", prefix)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, fmt.Errorf("history id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// Subscribe calls fn with the new list after every mutation. The returned
// function cancels the subscription.
func (s *Store) Subscribe(fn func([]Entry)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) notify(entries []Entry) {
	s.subMu.Lock()
	fns := make([]func([]Entry), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(entries)
	}
}

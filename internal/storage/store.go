package storage

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/daikw/voicealchemy/internal/datauri"
)

// File is an audio file kept in storage
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// fileEnvelope is the persisted shape of a File
type fileEnvelope struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// Store wraps a Backend with typed helpers. Writes never fail from the
// caller's point of view; errors are logged and the previous value is kept.
type Store struct {
	backend Backend
}

// NewStore creates a store over backend
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// NewMemoryStore is a convenience for NewStore(NewMemoryBackend())
func NewMemoryStore() *Store {
	return NewStore(NewMemoryBackend())
}

// Save writes value under key
func (s *Store) Save(key, value string) {
	if err := s.backend.Set(key, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to save value")
	}
}

// Load returns the value under key, or def when it is absent or unreadable
func (s *Store) Load(key, def string) string {
	v, ok, err := s.backend.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to load value")
		return def
	}
	if !ok {
		return def
	}
	return v
}

// Has reports whether key holds a value
func (s *Store) Has(key string) bool {
	_, ok, err := s.backend.Get(key)
	return err == nil && ok
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *Store) Remove(key string) {
	if err := s.backend.Delete(key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to remove value")
	}
}

// Keys lists the stored keys
func (s *Store) Keys() []string {
	keys, err := s.backend.Keys()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list keys")
		return nil
	}
	return keys
}

// SaveObject stores v as JSON under key
func (s *Store) SaveObject(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to encode value")
		return
	}
	s.Save(key, string(data))
}

// LoadObject decodes the JSON under key into a T. Missing or malformed
// values yield def.
func LoadObject[T any](s *Store, key string, def T) T {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to load value")
		return def
	}
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Stored value is not valid JSON, using default")
		return def
	}
	return v
}

// SaveFile stores f under key as a {name, type, data} envelope whose data
// is a base64 data URI. A nil file removes the key.
func (s *Store) SaveFile(key string, f *File) {
	if f == nil {
		s.Remove(key)
		return
	}
	s.SaveObject(key, fileEnvelope{
		Name: f.Name,
		Type: f.MimeType,
		Data: datauri.Encode(f.MimeType, f.Data),
	})
}

// LoadFile returns the file under key, or nil when it is missing or cannot
// be decoded. The mime type declared in the data URI wins over the
// envelope's type field.
func (s *Store) LoadFile(key string) *File {
	f, err := s.loadFile(key)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Stored file is unusable")
		return nil
	}
	return f
}

func (s *Store) loadFile(key string) (*File, error) {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var env fileEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("failed to parse file envelope: %w", err)
	}
	mime, data, err := datauri.Decode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file data: %w", err)
	}
	if mime == "" {
		mime = env.Type
	}
	if data == nil {
		data = []byte{}
	}
	return &File{Name: env.Name, MimeType: mime, Data: data}, nil
}

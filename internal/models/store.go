// Package models keeps the chat model selected for each guild.
package models

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config configures a Store.
type Config struct {
	Path      string
	Default   string
	Supported []string
}

// Store is a file-backed map of guild id to model id.
type Store struct {
	mu        sync.RWMutex
	path      string
	supported []string
	fallback  string
	file      File
	logger    *slog.Logger
}

// NewStore loads the file at cfg.Path. A missing, unreadable, or invalid
// file is replaced with defaults; the store is always usable.
func NewStore(log *slog.Logger, cfg Config) *Store {
	if log == nil {
		log = slog.Default()
	}
	supported := cfg.Supported
	if len(supported) == 0 {
		supported = DefaultSupported()
	}
	fallback := cfg.Default
	if fallback == "" || !slices.Contains(supported, fallback) {
		fallback = supported[0]
	}
	s := &Store{
		path:      cfg.Path,
		supported: slices.Clone(supported),
		fallback:  fallback,
		logger:    log.With(slog.String("service", "models")),
	}
	s.load()
	return s
}

// Supported returns the allow-list.
func (s *Store) Supported() []string {
	return slices.Clone(s.supported)
}

// Default returns the model used for guilds without a selection.
func (s *Store) Default() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.DefaultModel
}

// IsSupported reports whether model is in the allow-list.
func (s *Store) IsSupported(model string) bool {
	return slices.Contains(s.supported, model)
}

// ModelFor returns the model selected for guildID, or the default. An empty
// guildID (direct messages) always gets the default.
func (s *Store) ModelFor(guildID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if guildID != "" {
		if m, ok := s.file.GuildModels[guildID]; ok && m != "" {
			return m
		}
	}
	return s.file.DefaultModel
}

// SetModel selects model for guildID and persists the change.
func (s *Store) SetModel(guildID, model string) error {
	if guildID == "" {
		return errors.New("guild id is required")
	}
	if !s.IsSupported(model) {
		return fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.file.GuildModels[guildID]
	s.file.GuildModels[guildID] = model
	if err := s.persist(s.file); err != nil {
		if had {
			s.file.GuildModels[guildID] = prev
		} else {
			delete(s.file.GuildModels, guildID)
		}
		return err
	}
	s.logger.Info("model updated for guild", slog.String("guild_id", guildID), slog.String("model", model))
	return nil
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err == nil {
		s.file = f
		return
	}
	if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("failed to load model config, using defaults", slog.String("path", s.path), slog.Any("error", err))
	}
	s.file = File{Version: ConfigVersion, DefaultModel: s.fallback, GuildModels: map[string]string{}}
	if err := s.persist(s.file); err != nil {
		s.logger.Error("failed to persist model config", slog.String("path", s.path), slog.Any("error", err))
	}
}

func (s *Store) read() (File, error) {
	if s.path == "" {
		return File{}, fs.ErrNotExist
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("invalid model config: %w", err)
	}
	return f, nil
}

// persist writes f to a temp file and renames it over the config path.
func (s *Store) persist(f File) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create model config dir: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode model config: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace model config: %w", err)
	}
	return nil
}

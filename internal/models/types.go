package models

import (
	"errors"
	"fmt"
)

// Chat model ids known to work with the summarize and ask commands.
const (
	ModelGPT5     = "gpt-5"
	ModelGPT5Mini = "gpt-5-mini"
	ModelGPT5Nano = "gpt-5-nano"
)

// ConfigVersion is the current on-disk format version.
const ConfigVersion = 1

// ErrUnsupportedModel is returned when a model id is not in the allow-list.
var ErrUnsupportedModel = errors.New("unsupported model")

// DefaultSupported is the allow-list used when none is configured.
func DefaultSupported() []string {
	return []string{ModelGPT5, ModelGPT5Mini, ModelGPT5Nano}
}

// File is the persisted per-guild model selection.
type File struct {
	Version      int               `yaml:"version"`
	DefaultModel string            `yaml:"default_model"`
	GuildModels  map[string]string `yaml:"guild_models"`
}

// Validate checks the structure of a decoded file.
func (f File) Validate() error {
	if f.Version <= 0 {
		return fmt.Errorf("invalid version %d", f.Version)
	}
	if f.DefaultModel == "" {
		return errors.New("default_model is required")
	}
	if f.GuildModels == nil {
		return errors.New("guild_models is required")
	}
	return nil
}

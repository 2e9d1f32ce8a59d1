// Package settings persists the viewer's own preferences through gdata,
// which picks the per-user data directory for the platform.
package settings

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"spaceship-sim/internal/quality"
)

const (
	AppName = "spaceship_sim"

	settingsObject   = "viewer"
	settingsProperty = "settings"
)

// Settings are the viewer preferences that survive a restart
type Settings struct {
	ShowHUD    bool   `yaml:"showHUD"`
	PinnedTier string `yaml:"pinnedTier"` // "" follows the adaptive controller
	Trails     bool   `yaml:"showTrails"` // draw trails when the tier allows them
}

// Default returns the settings used before anything was saved
func Default() Settings {
	return Settings{ShowHUD: true, Trails: true}
}

// Tier returns the pinned tier, if any
func (s Settings) Tier() (quality.Tier, bool) {
	if s.PinnedTier == "" {
		return quality.Medium, false
	}
	return quality.ParseTier(s.PinnedTier)
}

// Store loads and saves Settings. A nil manager keeps them in memory only.
type Store struct {
	m   *gdata.Manager
	log *zap.Logger
	cur Settings
}

// Open creates the gdata manager for AppName. When the platform has no
// usable data directory it logs a warning and returns a memory-only Store.
func Open(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	m, err := gdata.Open(gdata.Config{AppName: AppName})
	if err != nil {
		log.Warn("settings storage unavailable, using defaults", zap.Error(err))
		m = nil
	}
	return NewStore(m, log)
}

// NewStore wraps m and loads whatever was saved before. Load failures fall back to defaults.
func NewStore(m *gdata.Manager, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{m: m, log: log, cur: Default()}
	if err := s.Load(); err != nil {
		log.Warn("failed to load settings, using defaults", zap.Error(err))
	}
	return s
}

// Load reads the saved settings; a missing entry yields the defaults
func (s *Store) Load() error {
	s.cur = Default()
	if s.m == nil || !s.m.ObjectPropExists(settingsObject, settingsProperty) {
		return nil
	}
	data, err := s.m.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}
	if _, ok := loaded.Tier(); !ok && loaded.PinnedTier != "" {
		s.log.Warn("ignoring unknown pinned tier", zap.String("tier", loaded.PinnedTier))
		loaded.PinnedTier = ""
	}
	s.cur = loaded
	return nil
}

// Save writes the current settings. Without a manager it is a no-op.
func (s *Store) Save() error {
	if s.m == nil {
		return nil
	}
	data, err := yaml.Marshal(s.cur)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.m.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.log.Debug("settings saved")
	return nil
}

// Get returns a copy of the current settings
func (s *Store) Get() Settings { return s.cur }

// Update applies fn to the current settings and saves the result
func (s *Store) Update(fn func(*Settings)) error {
	fn(&s.cur)
	return s.Save()
}

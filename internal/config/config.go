package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"spaceship-sim/internal/quality"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// EnvPath names the variable consulted when no -config flag is given
const EnvPath = "SPACESHIP_CONFIG"

type Config struct {
	Frame       FrameConfig       `toml:"frame"`
	Spatial     SpatialConfig     `toml:"spatial"`
	Pools       PoolsConfig       `toml:"pools"`
	Game        GameConfig        `toml:"game"`
	Quality     quality.Config    `toml:"quality"`
	Server      ServerConfig      `toml:"server"`
	Auth        AuthConfig        `toml:"auth"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Logging     LoggingConfig     `toml:"logging"`
}

type FrameConfig struct {
	TickRate  int     `toml:"tick_rate"`  // simulation steps per second
	MaxDelta  float64 `toml:"max_delta"`  // seconds; longer frames are clamped
	FrameRate int     `toml:"frame_rate"` // frames pushed to HUD clients per second
}

type SpatialConfig struct {
	CellSize float64 `toml:"cell_size"`
}

type PoolConfig struct {
	Initial int `toml:"initial"`
	Max     int `toml:"max"`
}

type PoolsConfig struct {
	Projectiles   PoolConfig `toml:"projectiles"`
	Particles     PoolConfig `toml:"particles"`
	CompactTarget int        `toml:"compact_target"` // idle instances kept after a low-load compaction
}

type GameConfig struct {
	Scenario          string  `toml:"scenario"`
	Width             float64 `toml:"width"`
	Height            float64 `toml:"height"`
	ProjectileRadius  float64 `toml:"projectile_radius"`
	ProjectileSpeed   float64 `toml:"projectile_speed"`
	ProjectileLife    float64 `toml:"projectile_life"` // seconds
	ShipRadius        float64 `toml:"ship_radius"`
	HostileRadius     float64 `toml:"hostile_radius"`
	AsteroidMaxRadius float64 `toml:"asteroid_max_radius"`
	ParticleRadius    float64 `toml:"particle_radius"`
}

type ServerConfig struct {
	BindAddress  string        `toml:"bind_address"`
	PublicURL    string        `toml:"public_url"` // encoded into the HUD QR code
	WriteTimeout time.Duration `toml:"write_timeout"`
	SendBuffer   int           `toml:"send_buffer"`
}

type AuthConfig struct {
	JWTSecret  string        `toml:"jwt_secret"`
	HUDKeyHash string        `toml:"hud_key_hash"` // bcrypt hash; empty disables token issuance
	TokenTTL   time.Duration `toml:"token_ttl"`
}

type DiagnosticsConfig struct {
	Enabled       bool          `toml:"enabled"`
	DBPath        string        `toml:"db_path"`
	SampleEvery   int           `toml:"sample_every"` // frames between snapshots
	BatchSize     int           `toml:"batch_size"`
	FlushInterval time.Duration `toml:"flush_interval"`
	QueueSize     int           `toml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// Load reads a TOML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve picks the config path: the flag value, then $SPACESHIP_CONFIG.
// An empty result means "use defaults".
func Resolve(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPath)
}

// LoadOrDefault loads path, or returns the defaults when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Frame: FrameConfig{
			TickRate:  60,
			MaxDelta:  0.1,
			FrameRate: 30,
		},
		Spatial: SpatialConfig{
			CellSize: 80,
		},
		Pools: PoolsConfig{
			Projectiles:   PoolConfig{Initial: 64, Max: 500},
			Particles:     PoolConfig{Initial: 64, Max: 512},
			CompactTarget: 32,
		},
		Game: GameConfig{
			Width:             2400,
			Height:            1600,
			ProjectileRadius:  4,
			ProjectileSpeed:   600,
			ProjectileLife:    2,
			ShipRadius:        20,
			HostileRadius:     18,
			AsteroidMaxRadius: 60,
			ParticleRadius:    2,
		},
		Quality: quality.DefaultConfig(),
		Server: ServerConfig{
			BindAddress:  ":8080",
			PublicURL:    "http://localhost:8080",
			WriteTimeout: 10 * time.Second,
			SendBuffer:   64,
		},
		Auth: AuthConfig{
			JWTSecret: "change-me",
			TokenTTL:  24 * time.Hour,
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:       true,
			DBPath:        "diagnostics.db",
			SampleEvery:   60,
			BatchSize:     50,
			FlushInterval: 5 * time.Second,
			QueueSize:     1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the tunables the simulation core relies on
func (c *Config) Validate() error {
	if c.Frame.TickRate <= 0 {
		return fmt.Errorf("%w: frame.tick_rate must be positive", ErrInvalid)
	}
	if c.Frame.MaxDelta <= 0 {
		return fmt.Errorf("%w: frame.max_delta must be positive", ErrInvalid)
	}
	if c.Frame.FrameRate <= 0 || c.Frame.FrameRate > c.Frame.TickRate {
		return fmt.Errorf("%w: frame.frame_rate must be in 1..tick_rate", ErrInvalid)
	}
	if c.Spatial.CellSize <= 0 {
		return fmt.Errorf("%w: spatial.cell_size must be positive", ErrInvalid)
	}
	// A cell smaller than the biggest body makes the search ring grow every frame.
	if r := c.Game.MaxRadius(); c.Spatial.CellSize < r {
		return fmt.Errorf("%w: spatial.cell_size %.1f is below the largest radius %.1f", ErrInvalid, c.Spatial.CellSize, r)
	}
	for _, p := range []struct {
		name string
		cfg  PoolConfig
	}{{"projectiles", c.Pools.Projectiles}, {"particles", c.Pools.Particles}} {
		if p.cfg.Max < 1 || p.cfg.Initial < 0 || p.cfg.Initial > p.cfg.Max {
			return fmt.Errorf("%w: pools.%s needs 0 <= initial <= max and max >= 1", ErrInvalid, p.name)
		}
	}
	if c.Game.Width <= 0 || c.Game.Height <= 0 {
		return fmt.Errorf("%w: game.width and game.height must be positive", ErrInvalid)
	}
	q := c.Quality
	if q.TargetFPS <= 0 || q.HistorySize < 1 || q.Transition <= 0 {
		return fmt.Errorf("%w: quality needs positive target_fps, history_size and transition", ErrInvalid)
	}
	if q.DegradeRatio <= 0 || q.UpgradeRatio <= q.DegradeRatio {
		return fmt.Errorf("%w: quality.degrade_ratio must be positive and below upgrade_ratio", ErrInvalid)
	}
	if _, ok := quality.ParseTier(q.Initial); !ok {
		return fmt.Errorf("%w: quality.initial %q is not low, medium or high", ErrInvalid, q.Initial)
	}
	if c.Diagnostics.Enabled && c.Diagnostics.DBPath == "" {
		return fmt.Errorf("%w: diagnostics.db_path is required when enabled", ErrInvalid)
	}
	return nil
}

// MaxRadius returns the largest configured collision radius
func (g GameConfig) MaxRadius() float64 {
	r := g.ProjectileRadius
	for _, v := range []float64{g.ShipRadius, g.HostileRadius, g.AsteroidMaxRadius, g.ParticleRadius} {
		if v > r {
			r = v
		}
	}
	return r
}

// TickDuration is the wall-clock length of one simulation step
func (f FrameConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(f.TickRate)
}

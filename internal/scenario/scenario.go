// Package scenario loads YAML files describing how a world starts: its size,
// the random seed and groups of objects to spawn.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind names what a spawn group creates
type Kind string

const (
	KindAsteroid Kind = "asteroid"
	KindHostile  Kind = "hostile"
	KindShip     Kind = "ship"
)

// ErrUnknownKind is returned by Validate for a group whose kind is not known
var ErrUnknownKind = errors.New("unknown spawn kind")

// Scenario is the root of a scenario file
type Scenario struct {
	Name   string  `yaml:"name"`
	Width  float64 `yaml:"width"`  // 0 keeps the configured world size
	Height float64 `yaml:"height"` // 0 keeps the configured world size
	Seed   int64   `yaml:"seed"`

	// Ambient population the spawner keeps topped up, bounded by the tier's object ceiling
	Asteroids int `yaml:"asteroids"`
	Hostiles  int `yaml:"hostiles"`

	Groups []Group `yaml:"groups"`
}

// Group spawns Count objects of one kind around (X, Y)
type Group struct {
	Kind   Kind    `yaml:"kind"`
	Count  int     `yaml:"count"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Spread float64 `yaml:"spread"` // random offset radius, 0 stacks them on (X, Y)
	VX     float64 `yaml:"vx"`
	VY     float64 `yaml:"vy"`
	Radius float64 `yaml:"radius"` // 0 picks the kind's default
	Manual bool    `yaml:"manual"` // ships only: disable the autopilot
}

// Load reads and validates the scenario at path
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for values the world cannot use
func (s *Scenario) Validate() error {
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("world size cannot be negative (%gx%g)", s.Width, s.Height)
	}
	if (s.Width == 0) != (s.Height == 0) {
		return fmt.Errorf("width and height must be set together")
	}
	if s.Asteroids < 0 || s.Hostiles < 0 {
		return fmt.Errorf("ambient counts cannot be negative")
	}
	for i, g := range s.Groups {
		switch g.Kind {
		case KindAsteroid, KindHostile, KindShip:
		default:
			return fmt.Errorf("group %d: %w %q", i, ErrUnknownKind, g.Kind)
		}
		if g.Count < 1 {
			return fmt.Errorf("group %d: count must be at least 1, got %d", i, g.Count)
		}
		if g.Spread < 0 || g.Radius < 0 {
			return fmt.Errorf("group %d: spread and radius cannot be negative", i)
		}
	}
	return nil
}

// Total returns how many objects the groups spawn
func (s *Scenario) Total() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Count
	}
	return n
}

// Package objecttest provides a configurable object.Object for tests.
package objecttest

import (
	"errors"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

// ErrBoom is returned by a Stub whose FailUpdate is set
var ErrBoom = errors.New("stub update failed")

// Stub is a minimal object whose hooks can be made to misbehave
type Stub struct {
	object.Base
	Kind object.Tag

	Updates     int
	Renders     int
	Inits       int
	Disposals   int
	FailUpdate  bool
	PanicUpdate bool
	FailRender  bool
	// DieAfter deactivates the stub on its Nth update (0 = never)
	DieAfter int
	// OnUpdate runs inside Update, after the counters are bumped
	OnUpdate func(s *Stub)
}

// New returns an inactive stub at (x, y)
func New(tag object.Tag, x, y, radius float64) *Stub {
	return &Stub{Base: object.NewBase(geom.V(x, y), radius), Kind: tag}
}

// NewActive returns a stub with its activity flag already set
func NewActive(tag object.Tag, x, y, radius float64) *Stub {
	s := New(tag, x, y, radius)
	s.SetActive(true)
	return s
}

func (s *Stub) Tag() object.Tag { return s.Kind }

func (s *Stub) Update(dt float64) error {
	s.Updates++
	if s.OnUpdate != nil {
		s.OnUpdate(s)
	}
	if s.PanicUpdate {
		panic("stub panic")
	}
	if s.FailUpdate {
		return ErrBoom
	}
	if s.DieAfter > 0 && s.Updates >= s.DieAfter {
		s.SetActive(false)
	}
	return nil
}

func (s *Stub) Render(r object.Renderer) error {
	s.Renders++
	if s.FailRender {
		return ErrBoom
	}
	return nil
}

func (s *Stub) Initialize() { s.Inits++ }
func (s *Stub) Dispose()    { s.Disposals++ }

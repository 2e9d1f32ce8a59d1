package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

// screen draws world-space commands onto an ebiten image, scaled to fit
type screen struct {
	dst   *ebiten.Image
	scale float32
}

var _ object.Renderer = (*screen)(nil)

func (s *screen) Circle(center geom.Vec2, radius float64, c color.RGBA) {
	r := float32(radius) * s.scale
	if r < 1 {
		r = 1
	}
	vector.DrawFilledCircle(s.dst, float32(center.X)*s.scale, float32(center.Y)*s.scale, r, c, true)
}

func (s *screen) Line(from, to geom.Vec2, c color.RGBA) {
	vector.StrokeLine(s.dst,
		float32(from.X)*s.scale, float32(from.Y)*s.scale,
		float32(to.X)*s.scale, float32(to.Y)*s.scale,
		1, c, true)
}

// Package render records draw commands so a frame can be shipped to remote
// HUD clients or replayed onto another surface.
package render

import (
	"image/color"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

// Kind distinguishes draw commands
type Kind uint8

const (
	KindCircle Kind = iota + 1
	KindLine
)

// Cmd is one draw command. Coordinates are rounded to 0.1 world units on the wire.
type Cmd struct {
	Kind  Kind    `msgpack:"k"`
	X     float32 `msgpack:"x"`
	Y     float32 `msgpack:"y"`
	R     float32 `msgpack:"r,omitempty"`
	X2    float32 `msgpack:"x2,omitempty"`
	Y2    float32 `msgpack:"y2,omitempty"`
	Color uint32  `msgpack:"c"` // 0xRRGGBBAA
}

// Frame is the serialisable result of one render pass
type Frame struct {
	Seq    uint64  `msgpack:"seq"`
	Width  float64 `msgpack:"w"`
	Height float64 `msgpack:"h"`
	Trails bool    `msgpack:"trails"`
	Cmds   []Cmd   `msgpack:"cmds"`
}

// Recorder implements object.Renderer by appending commands
type Recorder struct {
	seq    uint64
	width  float64
	height float64
	trails bool
	cmds   []Cmd
}

var _ object.Renderer = (*Recorder)(nil)

// NewRecorder creates a Recorder for a world of the given size
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{width: width, height: height, cmds: make([]Cmd, 0, 256)}
}

func (r *Recorder) Circle(center geom.Vec2, radius float64, c color.RGBA) {
	r.cmds = append(r.cmds, Cmd{
		Kind:  KindCircle,
		X:     round(center.X),
		Y:     round(center.Y),
		R:     round(radius),
		Color: Pack(c),
	})
}

func (r *Recorder) Line(from, to geom.Vec2, c color.RGBA) {
	r.cmds = append(r.cmds, Cmd{
		Kind:  KindLine,
		X:     round(from.X),
		Y:     round(from.Y),
		X2:    round(to.X),
		Y2:    round(to.Y),
		Color: Pack(c),
	})
}

// SetTrails marks whether the frame was drawn with secondary trails enabled
func (r *Recorder) SetTrails(on bool) { r.trails = on }

// Len returns the number of commands recorded since the last Reset
func (r *Recorder) Len() int { return len(r.cmds) }

// Reset starts a new frame, keeping the command buffer's capacity
func (r *Recorder) Reset() {
	r.seq++
	r.cmds = r.cmds[:0]
}

// Frame returns a copy of the current frame that stays valid after Reset
func (r *Recorder) Frame() Frame {
	cmds := make([]Cmd, len(r.cmds))
	copy(cmds, r.cmds)
	return Frame{Seq: r.seq, Width: r.width, Height: r.height, Trails: r.trails, Cmds: cmds}
}

// Replay draws every command of f onto dst
func Replay(f Frame, dst object.Renderer) {
	for _, c := range f.Cmds {
		clr := Unpack(c.Color)
		switch c.Kind {
		case KindCircle:
			dst.Circle(geom.V(float64(c.X), float64(c.Y)), float64(c.R), clr)
		case KindLine:
			dst.Line(geom.V(float64(c.X), float64(c.Y)), geom.V(float64(c.X2), float64(c.Y2)), clr)
		}
	}
}

// Encode serializes f with msgpack
func Encode(f Frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

// Decode is the inverse of Encode
func Decode(data []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}

// Pack folds a color into 0xRRGGBBAA
func Pack(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// Unpack is the inverse of Pack
func Unpack(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

func round(v float64) float32 {
	return float32(math.Round(v*10) / 10)
}

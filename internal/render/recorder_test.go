package render

import (
	"image/color"
	"testing"

	"spaceship-sim/internal/geom"
)

type counter struct {
	circles, lines int
	last           color.RGBA
}

func (c *counter) Circle(_ geom.Vec2, _ float64, clr color.RGBA) { c.circles++; c.last = clr }
func (c *counter) Line(_, _ geom.Vec2, clr color.RGBA)           { c.lines++; c.last = clr }

func TestRecorderFrame(t *testing.T) {
	r := NewRecorder(800, 600)
	orange := color.RGBA{R: 255, G: 140, B: 0, A: 255}
	r.Circle(geom.V(10.04, 20.06), 5, orange)
	r.Line(geom.V(0, 0), geom.V(3, 4), orange)
	r.SetTrails(true)

	f := r.Frame()
	if len(f.Cmds) != 2 || !f.Trails || f.Width != 800 {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if f.Cmds[0].X != 10 || f.Cmds[0].Y != float32(20.1) {
		t.Errorf("coordinates should be rounded to 0.1, got %f,%f", f.Cmds[0].X, f.Cmds[0].Y)
	}

	r.Reset()
	if r.Len() != 0 {
		t.Error("Reset should drop the commands")
	}
	if len(f.Cmds) != 2 {
		t.Error("a taken frame should survive Reset")
	}
	if r.Frame().Seq != f.Seq+1 {
		t.Error("Reset should advance the sequence number")
	}
}

func TestEncodeAndReplay(t *testing.T) {
	r := NewRecorder(100, 100)
	teal := color.RGBA{R: 0, G: 128, B: 128, A: 200}
	r.Circle(geom.V(1, 2), 3, teal)
	r.Line(geom.V(1, 1), geom.V(2, 2), teal)

	data, err := Encode(r.Frame())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var c counter
	Replay(f, &c)
	if c.circles != 1 || c.lines != 1 {
		t.Errorf("expected 1 circle and 1 line, got %d/%d", c.circles, c.lines)
	}
	if c.last != teal {
		t.Errorf("color changed on the wire: %+v", c.last)
	}
}

func TestPackUnpack(t *testing.T) {
	c := color.RGBA{R: 1, G: 2, B: 3, A: 4}
	if Pack(c) != 0x01020304 {
		t.Errorf("unexpected packing %08x", Pack(c))
	}
	if Unpack(Pack(c)) != c {
		t.Error("unpack should invert pack")
	}
}

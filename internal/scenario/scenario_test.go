package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(`
name: duel
width: 800
height: 600
seed: 42
asteroids: 5
groups:
  - kind: ship
    count: 1
    x: 100
    y: 300
    manual: true
  - kind: asteroid
    count: 3
    x: 400
    y: 300
    spread: 50
    vx: -10
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Name != "duel" || sc.Width != 800 || sc.Seed != 42 || sc.Asteroids != 5 {
		t.Errorf("unexpected header: %+v", sc)
	}
	if len(sc.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(sc.Groups))
	}
	if g := sc.Groups[0]; g.Kind != KindShip || !g.Manual {
		t.Errorf("unexpected ship group: %+v", g)
	}
	if g := sc.Groups[1]; g.Spread != 50 || g.VX != -10 {
		t.Errorf("unexpected asteroid group: %+v", g)
	}
	if sc.Total() != 4 {
		t.Errorf("expected 4 objects, got %d", sc.Total())
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   "groups: [{kind: comet, count: 1}]",
		"zero count":     "groups: [{kind: asteroid, count: 0}]",
		"negative size":  "width: -1\nheight: 10",
		"half size":      "width: 100",
		"negative pop":   "asteroids: -3",
		"negative range": "groups: [{kind: ship, count: 1, spread: -5}]",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	_, err := Parse([]byte("groups: [{kind: comet, count: 1}]"))
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	sc, err := Parse(nil)
	if err != nil {
		t.Fatalf("an empty scenario is valid: %v", err)
	}
	if sc.Total() != 0 {
		t.Errorf("expected no objects, got %d", sc.Total())
	}
}

func TestParseSyntaxError(t *testing.T) {
	if _, err := Parse([]byte("groups: [")); err == nil {
		t.Error("expected a syntax error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("name: tmp\ngroups: [{kind: hostile, count: 2}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "tmp" || sc.Total() != 2 {
		t.Errorf("unexpected scenario: %+v", sc)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestShippedScenario(t *testing.T) {
	sc, err := Load("../../data/scenarios/belt.yaml")
	if err != nil {
		t.Fatalf("shipped scenario should load: %v", err)
	}
	if sc.Total() == 0 || sc.Asteroids == 0 {
		t.Errorf("shipped scenario should spawn something: %+v", sc)
	}
}

// Package diag collects statistics snapshots for HUD overlays and keeps a
// history of them in SQLite.
package diag

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"spaceship-sim/internal/collision"
	"spaceship-sim/internal/entity"
	"spaceship-sim/internal/pool"
	"spaceship-sim/internal/quality"
)

// Snapshot is a copy of every counter the core exposes at one frame
type Snapshot struct {
	Frame     uint64          `json:"frame" msgpack:"frame"`
	At        time.Time       `json:"at" msgpack:"at"`
	Tier      string          `json:"tier" msgpack:"tier"`
	Collision collision.Stats `json:"collision" msgpack:"collision"`
	Registry  entity.Stats    `json:"registry" msgpack:"registry"`
	Pools     []pool.Stats    `json:"pools" msgpack:"pools"`
	Quality   quality.Stats   `json:"quality" msgpack:"quality"`
}

// TierChange records one quality tier transition
type TierChange struct {
	Frame uint64    `json:"frame" msgpack:"frame"`
	From  string    `json:"from" msgpack:"from"`
	To    string    `json:"to" msgpack:"to"`
	FPS   float64   `json:"fps" msgpack:"fps"`
	At    time.Time `json:"at" msgpack:"at"`
}

// Encode serializes a snapshot with msgpack
func Encode(s Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode is the inverse of Encode
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

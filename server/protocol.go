package main

import (
	"encoding/json"

	"spaceship-sim/internal/diag"
	"spaceship-sim/internal/render"
)

// Client -> Server message types (JSON text frames)
const (
	MsgTier = "tier" // pin a quality tier, or "auto"
)

// Server -> Client message types
const (
	MsgFrame   = "frame" // binary msgpack FrameMsg
	MsgWelcome = "welcome"
	MsgError   = "error"
)

// Envelope wraps JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage defers decoding the payload
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// TierMsg asks the engine to pin a tier ("low", "medium", "high") or resume "auto"
type TierMsg struct {
	Tier string `json:"tier"`
}

// WelcomeMsg is the first message a HUD client receives
type WelcomeMsg struct {
	Subject   string  `json:"sub"`
	Width     float64 `json:"w"`
	Height    float64 `json:"h"`
	FrameRate int     `json:"fps"`
}

// ErrorMsg reports a rejected request
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// FrameMsg is broadcast as a binary msgpack message for every rendered frame.
// Stats rides along on a slower cadence.
type FrameMsg struct {
	T     string         `msgpack:"t"`
	Frame render.Frame   `msgpack:"f"`
	Stats *diag.Snapshot `msgpack:"s,omitempty"`
}

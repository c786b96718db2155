// Package protocol defines the JSON event schema of the presence channel.
// Every frame is an Envelope with a type tag and a payload; unknown types
// are dropped by the dispatcher, never answered.
package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"
)

type EventType string

// Client to server.
const (
	EvMove          EventType = "move"
	EvNearbyPlayers EventType = "nearbyPlayers"
	EvQuit          EventType = "quit"
	EvInteract      EventType = "interact"
)

// Server to client.
const (
	EvWelcome        EventType = "welcome"
	EvPlayers        EventType = "players"
	EvGameRules      EventType = "gameRules"
	EvPlayerJoined   EventType = "playerJoined"
	EvPlayerMoved    EventType = "playerMoved"
	EvPlayerLeft     EventType = "playerLeft"
	EvProximityCalls EventType = "initiateProximityCalls"
	EvAccessDenied   EventType = "accessDenied"
)

// Both directions.
const (
	EvPlayerReaction EventType = "playerReaction"
	EvVideoStatus    EventType = "videoStatus"
	EvChat           EventType = "chat"
)

// Envelope is the wire frame: a tag plus the raw payload.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal encodes an envelope carrying v as its payload.
func Marshal(t EventType, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	out, err := json.Marshal(Envelope{Type: t, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", t, err)
	}
	return out, nil
}

// Unmarshal decodes a raw frame into an envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type tag")
	}
	return env, nil
}

// Decode parses the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Move is the client's position report, sent at ~10 Hz only when position or
// animation changed.
type Move struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Anim string  `json:"anim"`
}

// PlayerState is one entry of the join snapshot.
type PlayerState struct {
	Username string  `json:"username"`
	Role     string  `json:"role"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Anim     string  `json:"anim"`
	VideoOn  bool    `json:"videoOn"`
}

// Welcome tells the joining client its own session identity and spawn.
type Welcome struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Players is the full presence snapshot, keyed by session id. Sent privately
// to a joiner before any movement events for those sessions.
type Players map[string]PlayerState

// GameRules carries the zone access table so clients can enforce locally.
type GameRules struct {
	RoomAccess map[string][]string `json:"roomAccess"`
}

type PlayerJoined struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Anim     string  `json:"anim"`
}

// Pos is the nested coordinate pair carried by movement broadcasts.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PlayerMoved struct {
	ID   string `json:"id"`
	Pos  Pos    `json:"pos"`
	Anim string `json:"anim"`
}

// playerLeft carries the departing session id as a bare string payload,
// not an object. Marshal(EvPlayerLeft, sessionID) produces the right frame.

// NearbyPlayer is one proximity candidate, either reported by a client or
// resolved by the server.
type NearbyPlayer struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"`
}

// NearbyPlayers is the client's own proximity report. Honored only when the
// server is configured to trust client proximity.
type NearbyPlayers struct {
	NearbyPlayers []NearbyPlayer `json:"nearbyPlayers"`
}

// ProximityCalls is the authoritative per-session edge list. An empty list
// is still sent so the receiver can drain calls that fell out of range.
type ProximityCalls struct {
	NearbyPlayers []NearbyPlayer `json:"nearbyPlayers"`
}

type PlayerReaction struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

// VideoStatus is the camera state broadcast. Clients report their own state
// as a bare boolean payload; the relay wraps it with the sender id.
type VideoStatus struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type Chat struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Interact asks the server to run an interactable object's script.
type Interact struct {
	ObjectID string `json:"objectId"`
	Result   string `json:"result,omitempty"` // server reply: anim or message
}

type AccessDenied struct {
	ZoneID string `json:"zoneId"`
	Name   string `json:"name"`
}

package model

import "encoding/json"

// EventKind identifies the wire-protocol kind tag carried by every
// envelope (spec.md §6.1).
type EventKind string

const (
	EventPlay           EventKind = "play"
	EventPause          EventKind = "pause"
	EventSeekTo         EventKind = "seekTo"
	EventSetTrack       EventKind = "setTrack"
	EventSetTrackData   EventKind = "setTrackData"
	EventPositionUpdate EventKind = "positionUpdate"
	EventJoined         EventKind = "joined"
)

// TransportEvent is a decoded inbound event, already stripped of its
// envelope's transport-specific framing.
type TransportEvent struct {
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"`
	TrackRef  string          `json:"trackRef,omitempty"`
}

// PlayPausePayload carries the body of play/pause/seekTo events.
type PlayPausePayload struct {
	Track    *Track  `json:"track"`
	Position float64 `json:"position"`
}

// SetTrackPayload carries the body of a setTrack event. Metadata is nil
// when the track is being cleared.
type SetTrackPayload struct {
	Metadata   *Track      `json:"metadata"`
	WaitPoints []WaitPoint `json:"waitPoints,omitempty"`
}

// SetTrackDataPayload carries the body of a setTrackData event.
type SetTrackDataPayload struct {
	Data map[string]any `json:"data"`
}

// PositionUpdatePayload carries the body of a positionUpdate event.
type PositionUpdatePayload struct {
	PlaybackState PlaybackState  `json:"playbackState"`
	Position      float64        `json:"position"`
	PlaybackRate  float64        `json:"playbackRate"`
	TrackData     map[string]any `json:"trackData,omitempty"`
	WaitPoint     *WaitPoint     `json:"waitPoint,omitempty"`
}

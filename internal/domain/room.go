package domain

import (
	"encoding/json"
	"time"
)

type RoomID string

type Room struct {
	ID                 RoomID     `json:"id"`
	Name               string     `json:"name"`
	IsActive           bool       `json:"isActive"`
	MaxParticipants    int        `json:"maxParticipants"`
	IsRecording        bool       `json:"isRecording"`
	RecordingID        string     `json:"recordingId,omitempty"`
	RecordingStartedAt *time.Time `json:"recordingStartedAt,omitempty"`
}

// Rooms are stored as JSON blobs, so they need to be BinaryMarshalers
// for the redis client.
func (r Room) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

func (r *Room) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

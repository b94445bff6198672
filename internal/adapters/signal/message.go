package signal

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

type MessageType string

const (
	TypeJoin              MessageType = "join"
	TypeLeave             MessageType = "leave"
	TypeOffer             MessageType = "offer"
	TypeAnswer            MessageType = "answer"
	TypeICECandidate      MessageType = "ice-candidate"
	TypeRecordingStatus   MessageType = "recording-status"
	TypeHeartbeat         MessageType = "heartbeat"
	TypeMediaStatus       MessageType = "media-status"
	TypeConnectionStatus  MessageType = "connection-status"
	TypeParticipantUpdate MessageType = "participant-update" // server -> client only
	TypeError             MessageType = "error"              // server -> client only
)

type ErrorCode string

const (
	CodeInvalidMessage       ErrorCode = "INVALID_MESSAGE"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeRoomNotFound         ErrorCode = "ROOM_NOT_FOUND"
	CodeRoomFull             ErrorCode = "ROOM_FULL"
	CodeParticipantNotFound  ErrorCode = "PARTICIPANT_NOT_FOUND"
	CodeNetworkError         ErrorCode = "NETWORK_ERROR"
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
)

type UpdateAction string

const (
	ActionJoined           UpdateAction = "joined"
	ActionLeft             UpdateAction = "left"
	ActionDisconnected     UpdateAction = "disconnected"
	ActionConnected        UpdateAction = "connected"
	ActionParticipantsList UpdateAction = "participants-list"
)

// Envelope is the wire frame shared by every message type. Data is
// decoded per type by the validator.
type Envelope struct {
	Type          MessageType          `json:"type"`
	RoomID        domain.RoomID        `json:"roomId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Timestamp     time.Time            `json:"timestamp"`
	Data          json.RawMessage      `json:"data,omitempty"`
}

type JoinPayload struct {
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

type LeavePayload struct {
	Reason string `json:"reason,omitempty"`
}

// SDPPayload carries offer and answer relays. From/FromName are stamped
// by the server on egress; client-supplied values are overwritten.
type SDPPayload struct {
	To       domain.ParticipantID      `json:"to" validate:"required"`
	SDP      webrtc.SessionDescription `json:"sdp"`
	From     domain.ParticipantID      `json:"from,omitempty"`
	FromName string                    `json:"fromName,omitempty"`
}

type CandidatePayload struct {
	To        domain.ParticipantID    `json:"to" validate:"required"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      domain.ParticipantID    `json:"from,omitempty"`
	FromName  string                  `json:"fromName,omitempty"`
}

type RecordingStatusPayload struct {
	IsRecording bool       `json:"isRecording"`
	RecordingID string     `json:"recordingId,omitempty" validate:"omitempty,max=128"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
}

type HeartbeatPayload struct {
	Ping bool `json:"ping,omitempty"`
}

type PongPayload struct {
	Pong    bool  `json:"pong"`
	Latency int64 `json:"latency"` // milliseconds
}

// StatusPayload is the free-form body of media-status and
// connection-status messages, relayed verbatim after sanitization.
type StatusPayload map[string]any

type ParticipantUpdatePayload struct {
	Action       UpdateAction         `json:"action"`
	Participant  *domain.Participant  `json:"participant,omitempty"`
	Participants []domain.Participant `json:"participants,omitempty"`
	Reason       string               `json:"reason,omitempty"`
}

type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Message is the decoded, validated form of an inbound frame. Exactly one
// payload pointer is set, matching Type.
type Message struct {
	Envelope

	Join      *JoinPayload
	Leave     *LeavePayload
	SDP       *SDPPayload
	Candidate *CandidatePayload
	Recording *RecordingStatusPayload
	Heartbeat *HeartbeatPayload
	Status    StatusPayload
}

// Encode builds an outbound frame. participantId identifies the subject
// of the message (the sender for relays, the server's peer otherwise).
func Encode(t MessageType, roomID domain.RoomID, pid domain.ParticipantID, data any) (core.Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	env := Envelope{
		Type:          t,
		RoomID:        roomID,
		ParticipantID: pid,
		Timestamp:     time.Now().UTC(),
		Data:          raw,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

package signal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var clientTypes = map[MessageType]struct{}{
	TypeJoin:             {},
	TypeLeave:            {},
	TypeOffer:            {},
	TypeAnswer:           {},
	TypeICECandidate:     {},
	TypeRecordingStatus:  {},
	TypeHeartbeat:        {},
	TypeMediaStatus:      {},
	TypeConnectionStatus: {},
}

// DecodeMessage parses and validates a raw inbound frame. On failure it
// returns human-readable error strings; it never panics and never drops
// silently. The caller converts the list into an error reply.
func DecodeMessage(raw []byte) (*Message, []string) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, []string{fmt.Sprintf("invalid JSON: %v", err)}
	}

	var errs []string
	if env.Type == "" {
		errs = append(errs, "missing message type")
	} else if _, ok := clientTypes[env.Type]; !ok {
		errs = append(errs, fmt.Sprintf("unknown message type %q", env.Type))
	}
	if env.RoomID == "" {
		errs = append(errs, "missing roomId")
	}
	if env.ParticipantID == "" {
		errs = append(errs, "missing participantId")
	}
	if env.Timestamp.IsZero() {
		errs = append(errs, "missing or invalid timestamp")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	msg := &Message{Envelope: env}
	if errs := decodePayload(msg); len(errs) > 0 {
		return nil, errs
	}
	return msg, nil
}

func decodePayload(msg *Message) []string {
	data := msg.Data
	if len(data) == 0 {
		data = []byte("{}")
	}

	switch msg.Type {
	case TypeJoin:
		var p JoinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid join payload: %v", err)}
		}
		p.Capabilities = sanitizeMap(p.Capabilities)
		msg.Join = &p

	case TypeLeave:
		var p LeavePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid leave payload: %v", err)}
		}
		p.Reason = sanitizeString(p.Reason)
		msg.Leave = &p

	case TypeOffer, TypeAnswer:
		var p SDPPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid %s payload: %v", msg.Type, err)}
		}
		if errs := structErrors(&p); len(errs) > 0 {
			return errs
		}
		if p.SDP.SDP == "" {
			return []string{fmt.Sprintf("%s requires an sdp object", msg.Type)}
		}
		msg.SDP = &p

	case TypeICECandidate:
		var p CandidatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid ice-candidate payload: %v", err)}
		}
		if errs := structErrors(&p); len(errs) > 0 {
			return errs
		}
		if p.Candidate.Candidate == "" {
			return []string{"ice-candidate requires a candidate object"}
		}
		msg.Candidate = &p

	case TypeRecordingStatus:
		var p RecordingStatusPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid recording-status payload: %v", err)}
		}
		if errs := structErrors(&p); len(errs) > 0 {
			return errs
		}
		p.RecordingID = sanitizeString(p.RecordingID)
		msg.Recording = &p

	case TypeHeartbeat:
		var p HeartbeatPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid heartbeat payload: %v", err)}
		}
		msg.Heartbeat = &p

	case TypeMediaStatus, TypeConnectionStatus:
		var p StatusPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return []string{fmt.Sprintf("invalid %s payload: %v", msg.Type, err)}
		}
		msg.Status = StatusPayload(sanitizeMap(p))

	default:
		return []string{fmt.Sprintf("unknown message type %q", msg.Type)}
	}
	return nil
}

func structErrors(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("field %s failed on %q", fe.Field(), fe.Tag()))
	}
	return out
}

// sanitizeString strips control characters so payloads echoed to other
// clients cannot smuggle terminal or header injection. TAB, CR and LF
// survive: SDP bodies are CRLF-separated.
func sanitizeString(s string) string {
	if !strings.ContainsFunc(s, isDisallowedRune) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isDisallowedRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDisallowedRune(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f)
}

// sanitizeMap walks a decoded JSON structure and sanitizes every nested
// string, including map keys.
func sanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[sanitizeString(k)] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return sanitizeString(t)
	case map[string]any:
		return sanitizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	default:
		return v
	}
}

package signal

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func envJSON(t *testing.T, typ, data string) []byte {
	t.Helper()
	ts := time.Now().UTC().Format(time.RFC3339)
	return []byte(fmt.Sprintf(
		`{"type":%q,"roomId":"room-1","participantId":"alice","timestamp":%q,"data":%s}`,
		typ, ts, data))
}

func TestDecodeMessageRejections(t *testing.T) {
	cases := []struct {
		name    string
		raw     []byte
		wantErr string
	}{
		{"not json", []byte("{nope"), "invalid JSON"},
		{"missing type", []byte(`{"roomId":"r","participantId":"p","timestamp":"2026-01-02T15:04:05Z"}`), "missing message type"},
		{"unknown type", envJSON(t, "teleport", `{}`), "unknown message type"},
		{"server-only type", envJSON(t, "participant-update", `{}`), "unknown message type"},
		{"error type from client", envJSON(t, "error", `{}`), "unknown message type"},
		{"missing room", []byte(`{"type":"heartbeat","participantId":"p","timestamp":"2026-01-02T15:04:05Z"}`), "missing roomId"},
		{"missing participant", []byte(`{"type":"heartbeat","roomId":"r","timestamp":"2026-01-02T15:04:05Z"}`), "missing participantId"},
		{"missing timestamp", []byte(`{"type":"heartbeat","roomId":"r","participantId":"p"}`), "missing or invalid timestamp"},
		{"offer without target", envJSON(t, "offer", `{"sdp":{"type":"offer","sdp":"v=0"}}`), "failed on \"required\""},
		{"offer without sdp", envJSON(t, "offer", `{"to":"bob"}`), "requires an sdp object"},
		{"answer without sdp", envJSON(t, "answer", `{"to":"bob","sdp":{}}`), "requires an sdp object"},
		{"candidate without target", envJSON(t, "ice-candidate", `{"candidate":{"candidate":"candidate:1"}}`), "failed on \"required\""},
		{"candidate without body", envJSON(t, "ice-candidate", `{"to":"bob","candidate":{}}`), "requires a candidate object"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, errs := DecodeMessage(tc.raw)
			if msg != nil {
				t.Fatalf("expected rejection, got message %+v", msg)
			}
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			joined := strings.Join(errs, "; ")
			if !strings.Contains(joined, tc.wantErr) {
				t.Fatalf("errors %q do not mention %q", joined, tc.wantErr)
			}
		})
	}
}

func TestDecodeMessageOffer(t *testing.T) {
	sdpBody := "v=0\r\no=- 46117317 2 IN IP4 127.0.0.1\r\n"
	raw := envJSON(t, "offer", fmt.Sprintf(`{"to":"bob","sdp":{"type":"offer","sdp":%q},"from":"mallory"}`, sdpBody))

	msg, errs := DecodeMessage(raw)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if msg.Type != TypeOffer || msg.SDP == nil {
		t.Fatalf("expected decoded offer, got %+v", msg)
	}
	if msg.SDP.To != "bob" {
		t.Fatalf("wrong target %q", msg.SDP.To)
	}
	if msg.SDP.SDP.SDP != sdpBody {
		t.Fatal("CRLF-separated SDP body must survive decoding untouched")
	}
}

func TestDecodeMessageHeartbeatWithoutData(t *testing.T) {
	raw := []byte(`{"type":"heartbeat","roomId":"room-1","participantId":"alice","timestamp":"2026-01-02T15:04:05Z"}`)
	msg, errs := DecodeMessage(raw)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if msg.Heartbeat == nil {
		t.Fatal("expected heartbeat payload")
	}
}

func TestDecodeMessageSanitizesStatus(t *testing.T) {
	raw := envJSON(t, "media-status", `{"state":"mut\u0000ed","nested":{"note":"a\u0007b"},"list":["x\u001by"]}`)
	msg, errs := DecodeMessage(raw)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := msg.Status["state"]; got != "muted" {
		t.Fatalf("control chars not stripped: %q", got)
	}
	nested := msg.Status["nested"].(map[string]any)
	if got := nested["note"]; got != "ab" {
		t.Fatalf("nested string not sanitized: %q", got)
	}
	list := msg.Status["list"].([]any)
	if got := list[0]; got != "xy" {
		t.Fatalf("array element not sanitized: %q", got)
	}
}

func TestDecodeMessageSanitizesLeaveReason(t *testing.T) {
	raw := envJSON(t, "leave", `{"reason":"done\u0008 here"}`)
	msg, errs := DecodeMessage(raw)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if msg.Leave.Reason != "done here" {
		t.Fatalf("reason not sanitized: %q", msg.Leave.Reason)
	}
}

func TestSanitizeStringKeepsWhitespaceControls(t *testing.T) {
	in := "line1\r\nline2\ttab"
	if got := sanitizeString(in); got != in {
		t.Fatalf("TAB/CR/LF must survive, got %q", got)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	frame, err := Encode(TypeError, "room-1", "alice", ErrorPayload{Code: CodeRoomFull, Message: "room is full"})
	if err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeError || env.RoomID != "room-1" || env.ParticipantID != "alice" {
		t.Fatalf("bad envelope %+v", env)
	}
	var p ErrorPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Code != CodeRoomFull {
		t.Fatalf("bad payload %+v", p)
	}
	if env.Timestamp.IsZero() {
		t.Fatal("outbound frames must be timestamped")
	}
}

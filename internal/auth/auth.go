// Package auth verifies the signed signaling tokens that admit hosts and
// guests to the socket. Tokens are minted by the API tier; this side only
// checks the HMAC and the claims.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/loopcast/studio-signaling/internal/domain"
)

var (
	ErrMissingToken  = errors.New("missing token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrRoomMismatch  = errors.New("token room does not match request")
	ErrBadIdentity   = errors.New("token carries an invalid identity")
	errMalformedPart = errors.New("malformed token part")
)

const maxTokenLen = 4096

type claims struct {
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName"`
	ParticipantType string `json:"participantType"`
	RoomID          string `json:"roomId"`
	Exp             int64  `json:"exp"`
}

// TokenAuthenticator implements core.Authenticator over HMAC-SHA256
// signed tokens of the form base64url(claims) + "." + base64url(sig).
type TokenAuthenticator struct {
	secret []byte
	now    func() time.Time
}

func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret), now: time.Now}
}

// Authenticate resolves the identity behind an upgrade request from its
// query parameters: `token` carries the signed claims, `room_id` must
// match the token's room claim.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (domain.Identity, error) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		return domain.Identity{}, ErrMissingToken
	}

	cl, err := a.verify(token)
	if err != nil {
		return domain.Identity{}, err
	}
	if roomID := q.Get("room_id"); roomID != "" && roomID != cl.RoomID {
		return domain.Identity{}, ErrRoomMismatch
	}

	ident := domain.Identity{
		ParticipantID:   domain.ParticipantID(cl.ParticipantID),
		ParticipantName: cl.ParticipantName,
		ParticipantType: domain.ParticipantType(cl.ParticipantType),
		RoomID:          domain.RoomID(cl.RoomID),
	}
	if err := ident.Validate(); err != nil {
		return domain.Identity{}, ErrBadIdentity
	}
	return ident, nil
}

func (a *TokenAuthenticator) verify(token string) (claims, error) {
	if len(token) > maxTokenLen {
		return claims{}, ErrInvalidToken
	}
	payloadB64, sigB64, ok := strings.Cut(token, ".")
	if !ok {
		return claims{}, ErrInvalidToken
	}

	gotSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(gotSig) != sha256.Size {
		return claims{}, ErrInvalidToken
	}
	mac := hmac.New(sha256.New, a.secret)
	_, _ = mac.Write([]byte(payloadB64))
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return claims{}, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return claims{}, errMalformedPart
	}
	var cl claims
	if err := json.Unmarshal(payload, &cl); err != nil {
		return claims{}, errMalformedPart
	}
	if cl.Exp <= 0 || a.now().Unix() >= cl.Exp {
		return claims{}, ErrTokenExpired
	}
	return cl, nil
}

// Sign mints a token for the given identity. Exposed for the API tier
// and for tests.
func (a *TokenAuthenticator) Sign(ident domain.Identity, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(claims{
		ParticipantID:   string(ident.ParticipantID),
		ParticipantName: ident.ParticipantName,
		ParticipantType: string(ident.ParticipantType),
		RoomID:          string(ident.RoomID),
		Exp:             a.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	mac := hmac.New(sha256.New, a.secret)
	_, _ = mac.Write([]byte(payloadB64))
	sigB64 := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payloadB64 + "." + sigB64, nil
}

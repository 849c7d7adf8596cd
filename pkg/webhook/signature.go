// Package webhook builds the outbound event envelope and its HMAC-SHA256
// signature, and verifies inbound signatures with the same constant-time
// contract.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// MaxClockSkew is the replay-tolerance window for signature verification.
const MaxClockSkew = 300 * time.Second

// Envelope is the exact outbound payload shape: {eventType, timestamp, data}.
type Envelope struct {
	EventType string      `json:"eventType"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Sign canonicalizes eventType/data into an Envelope, marshals it, and
// returns the serialized body alongside its "sha256=<hex>" signature.
func Sign(secret, eventType string, data interface{}, now time.Time) (body []byte, signature string, err error) {
	env := Envelope{
		EventType: eventType,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}

	body, err = json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal webhook envelope: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	signature = "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return body, signature, nil
}

// Verify checks a received signature in constant time and rejects stale
// deliveries outside MaxClockSkew.
func Verify(secret string, body []byte, signature string, timestampUnix int64, now time.Time) bool {
	if skew := now.Unix() - timestampUnix; skew > int64(MaxClockSkew.Seconds()) || skew < -int64(MaxClockSkew.Seconds()) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

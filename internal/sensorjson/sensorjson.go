// Package sensorjson repairs the loosely formatted JSON emitted by the
// power-meter gateway and relays it as compact JSON.
package sensorjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/mqtt"
)

// ErrNoObject is returned when the payload has no {...} span.
var ErrNoObject = errors.New("no JSON object in payload")

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize strips line breaks, collapses "::" to ":", trims leading and
// trailing commas and spaces, and collapses whitespace runs to one space.
func Normalize(raw string) string {
	s := strings.NewReplacer("\n", "", "\r", "").Replace(raw)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "::", ":")
	s = strings.Trim(s, ", ")
	return whitespaceRun.ReplaceAllString(s, " ")
}

// Extract returns the span from the first '{' to the last '}'.
func Extract(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", ErrNoObject
	}
	return s[start : end+1], nil
}

// Repair normalizes raw, extracts the object and decodes it. Numbers keep
// their original text.
func Repair(raw []byte) (map[string]any, error) {
	obj, err := Extract(Normalize(string(raw)))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode repaired payload: %w", err)
	}
	return out, nil
}

// Compact repairs raw and re-encodes it as compact JSON with sorted keys.
func Compact(raw []byte) ([]byte, error) {
	obj, err := Repair(raw)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Relay republishes repaired payloads to a target topic.
type Relay struct {
	pub    mqtt.Publisher
	target string
	logger zerolog.Logger
}

// NewRelay creates a relay publishing to target.
func NewRelay(pub mqtt.Publisher, target string, logger zerolog.Logger) *Relay {
	return &Relay{pub: pub, target: target, logger: logger}
}

// Handle repairs one payload. Payloads that cannot be repaired are dropped
// with a warning.
func (r *Relay) Handle(topic string, payload []byte) {
	out, err := Compact(payload)
	if err != nil {
		r.logger.Warn().Err(err).Str("topic", topic).Bytes("payload", payload).Msg("Dropping unrepairable payload")
		return
	}
	if err := r.pub.Publish(r.target, 0, false, out); err != nil {
		r.logger.Error().Err(err).Str("topic", r.target).Msg("Relay publish failed")
		return
	}
	r.logger.Debug().Str("from", topic).Str("to", r.target).Msg("Relayed")
}

package consumer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartdate/internal/model"
)

// ErrMalformed marks a payload that cannot be turned into a record.
var ErrMalformed = errors.New("malformed detection message")

type inbound struct {
	Label      *string         `json:"label"`
	Confidence *float64        `json:"confidence"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Image      string          `json:"image"`
}

// message is a parsed payload with defaults applied.
type message struct {
	record model.Record
	image  string // base64, possibly empty
}

// parseMessage decodes payload. A missing confidence defaults to 0 and a
// missing timestamp to now. Timestamps may be epoch seconds or RFC 3339.
func parseMessage(payload []byte, now time.Time) (message, error) {
	var in inbound
	if err := json.Unmarshal(payload, &in); err != nil {
		return message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if in.Label == nil || strings.TrimSpace(*in.Label) == "" {
		return message{}, fmt.Errorf("%w: missing label", ErrMalformed)
	}

	rec := model.Record{Label: *in.Label}
	if in.Confidence != nil {
		rec.Confidence = *in.Confidence
	}

	ts, err := parseTimestamp(in.Timestamp, now)
	if err != nil {
		return message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rec.Timestamp = ts

	return message{record: rec, image: in.Image}, nil
}

func parseTimestamp(raw json.RawMessage, now time.Time) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return model.EpochSeconds(now), nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err == nil {
		return num, nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return 0, fmt.Errorf("invalid timestamp %s", trimmed)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		// naive ISO timestamps are taken as UTC
		t, err = time.Parse("2006-01-02T15:04:05.999999999", text)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", text)
		}
	}
	return model.EpochSeconds(t), nil
}

// decodeImage returns the JPEG bytes of a base64 crop.
func decodeImage(b64 string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return data, nil
}

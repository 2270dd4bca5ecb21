package model

import (
	"math"
	"time"
)

// DetectionEvent is the message published to the broker for every decision.
type DetectionEvent struct {
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	Timestamp      float64 `json:"timestamp"`
	Image          string  `json:"image,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// Record is one accepted detection as persisted by the subscriber.
type Record struct {
	Timestamp  float64 `json:"timestamp" bson:"timestamp"`
	Label      string  `json:"label" bson:"label"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	Image      string  `json:"image,omitempty" bson:"-"` // snapshot file name, history store only
}

// Time converts the record timestamp to a time.Time.
func (r Record) Time() time.Time {
	return FromEpoch(r.Timestamp)
}

// LabelCount is the number of stored records for one label.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Stats summarizes the stored detection history.
type Stats struct {
	Total         int64        `json:"total"`
	Today         int64        `json:"today"`
	AvgConfidence float64      `json:"avgConfidence"`
	ByLabel       []LabelCount `json:"byType"`
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpoch converts fractional epoch seconds back to a time.Time.
func FromEpoch(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}

// RoundConfidence rounds a confidence to three decimals, the precision used on the wire.
func RoundConfidence(c float64) float64 {
	return math.Round(c*1000) / 1000
}

package dto

import "smartdate/internal/model"

// LatestDetection is the /api/latest payload: the last accepted record and
// the advice derived from it.
type LatestDetection struct {
	Timestamp      float64 `json:"timestamp"`
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	Image          string  `json:"image,omitempty"`
	Recommendation string  `json:"recommendation"`
}

// NewLatestDetection builds the payload for rec.
func NewLatestDetection(rec model.Record) LatestDetection {
	return LatestDetection{
		Timestamp:      rec.Timestamp,
		Label:          rec.Label,
		Confidence:     rec.Confidence,
		Image:          rec.Image,
		Recommendation: model.Recommend(rec.Label, rec.Confidence*100),
	}
}

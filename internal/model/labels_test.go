package model

import (
	"strings"
	"testing"
	"time"
)

func TestIsKnownLabel(t *testing.T) {
	tests := []struct {
		label    string
		expected bool
	}{
		{"alig", true},
		{"Deglet Nour semi-oily treated", true},
		{"deglet nour oily", true},
		{NoneLabel, true},
		{"mango", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsKnownLabel(tt.label); got != tt.expected {
			t.Errorf("IsKnownLabel(%q) = %v, expected %v", tt.label, got, tt.expected)
		}
	}
}

func TestLabelAt(t *testing.T) {
	label, err := LabelAt(1)
	if err != nil {
		t.Fatalf("LabelAt(1) failed: %v", err)
	}
	if label != "bessra" {
		t.Errorf("Expected bessra, got %s", label)
	}

	if _, err := LabelAt(len(Labels)); err == nil {
		t.Error("Expected error for out of range index")
	}
	if _, err := LabelAt(-1); err == nil {
		t.Error("Expected error for negative index")
	}
}

func TestRecommend(t *testing.T) {
	if got := Recommend(NoneLabel, 0); got != "No date detected" {
		t.Errorf("Unexpected recommendation for none: %s", got)
	}
	if got := Recommend("kenta", 95); !strings.HasPrefix(got, "✅") {
		t.Errorf("Expected top grade, got %s", got)
	}
	if got := Recommend("kenta", 80); !strings.Contains(got, "check quality") {
		t.Errorf("Expected middle grade, got %s", got)
	}
	if got := Recommend("kenta", 10); !strings.Contains(got, "non-compliance") {
		t.Errorf("Expected low grade, got %s", got)
	}
	if got := Recommend("mango", 95); !strings.Contains(got, "Unknown category") {
		t.Errorf("Expected unknown category, got %s", got)
	}
}

func TestQualityNote(t *testing.T) {
	if QualityNote(0.85) == QualityNote(0.84) {
		t.Error("Expected different notes on either side of 0.85")
	}
}

func TestEpochRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 15, 250_000_000, time.UTC)
	sec := EpochSeconds(now)

	back := FromEpoch(sec)
	if diff := back.Sub(now); diff > time.Microsecond || diff < -time.Microsecond {
		t.Errorf("Round trip drifted by %v", diff)
	}
}

func TestBoxGeometry(t *testing.T) {
	b := Box{X1: 10, Y1: 20, X2: 40, Y2: 80}
	if b.Width() != 30 || b.Height() != 60 || b.Area() != 1800 {
		t.Errorf("Unexpected geometry: w=%d h=%d a=%d", b.Width(), b.Height(), b.Area())
	}

	inverted := Box{X1: 40, Y1: 20, X2: 10, Y2: 80}
	if !inverted.Empty() {
		t.Error("Inverted box should be empty")
	}
}

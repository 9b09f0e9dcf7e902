package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPriceCompetitivenessPrefersTopLevelKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"top level", `{"price_competitiveness":"competitive"}`, PriceCompetitive},
		{"nested", `{"competition_analysis":{"price_competitiveness":"competitive"}}`, PriceCompetitive},
		{"top level wins", `{"price_competitiveness":"unknown","competition_analysis":{"price_competitiveness":"competitive"}}`, PriceUnknown},
		{"blank top level falls back", `{"price_competitiveness":" ","competition_analysis":{"price_competitiveness":"unknown"}}`, PriceUnknown},
		{"absent", `{}`, ""},
	}
	for _, tc := range cases {
		var m MarketAnalysis
		if err := json.Unmarshal([]byte(tc.raw), &m); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if got := m.PriceCompetitiveness(); got != tc.want {
			t.Fatalf("%s: competitiveness = %q, want %q", tc.name, got, tc.want)
		}
	}

	var nilMarket *MarketAnalysis
	if got := nilMarket.PriceCompetitiveness(); got != "" {
		t.Fatalf("nil market competitiveness = %q", got)
	}
}

func TestMetadataTimestampFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"naive with micros", `"2024-05-01T10:00:00.123456"`, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)},
		{"naive seconds", `"2024-05-01T10:00:00"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"space separated", `"2024-05-01 10:00:00"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 utc", `"2024-05-01T10:00:00Z"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", `"2024-05-01T12:00:00+02:00"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"empty", `""`, time.Time{}},
		{"null", `null`, time.Time{}},
	}
	for _, tc := range cases {
		raw := `{"version":"1.0","confidence_score":0.75,"timestamp":` + tc.raw + `}`
		var m Metadata
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if !m.Timestamp.Equal(tc.want) {
			t.Fatalf("%s: timestamp = %v, want %v", tc.name, m.Timestamp, tc.want)
		}
		if m.Version != "1.0" || m.ConfidenceScore != 0.75 {
			t.Fatalf("%s: other fields lost: %+v", tc.name, m)
		}
	}
}

func TestMetadataRejectsGarbageTimestamp(t *testing.T) {
	t.Parallel()

	var m Metadata
	if err := json.Unmarshal([]byte(`{"timestamp":"yesterday"}`), &m); err == nil {
		t.Fatalf("expected error for unparseable timestamp")
	}
}

func TestProductAnalysisDecodesNaiveTimestamp(t *testing.T) {
	t.Parallel()

	raw := `{"product_information":{"product_name":"Canon EOS 80D"},"metadata":{"timestamp":"2024-05-01T10:00:00.123456"}}`
	var a ProductAnalysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Metadata.Timestamp.IsZero() || a.Metadata.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp = %v", a.Metadata.Timestamp)
	}

	// Marshalling still produces RFC 3339.
	out, err := json.Marshal(a.Metadata)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Metadata
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !back.Timestamp.Equal(a.Metadata.Timestamp) {
		t.Fatalf("round trip timestamp = %v, want %v", back.Timestamp, a.Metadata.Timestamp)
	}
}

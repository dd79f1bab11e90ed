package service

import (
	"testing"
	"time"
)

func TestParseDateFilter(t *testing.T) {
	now := time.Date(2025, time.June, 18, 14, 0, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		name             string
		preset, from, to string
		wantPreset       string
		wantFrom, wantTo *time.Time
	}{
		{"default", "", "", "", PresetAll, nil, nil},
		{"unknown preset", "decade", "2025-01-01", "", PresetAll, nil, nil},
		{"year", "year", "", "", PresetYear, ptr(date(2025, time.January, 1)), nil},
		{"month", "MONTH", "", "", PresetMonth, ptr(date(2025, time.June, 1)), nil},
		{"custom", "custom", "2025-02-01", "2025-02-28", PresetCustom, ptr(date(2025, time.February, 1)), ptr(date(2025, time.February, 28))},
		{"custom reversed", "custom", "2025-02-28", "2025-02-01", PresetCustom, ptr(date(2025, time.February, 1)), ptr(date(2025, time.February, 28))},
		{"custom open end", "custom", "2025-02-01", "garbage", PresetCustom, ptr(date(2025, time.February, 1)), nil},
		{"custom empty", "custom", "", "", PresetAll, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDateFilter(tc.preset, tc.from, tc.to, now)
			if got.Preset != tc.wantPreset {
				t.Fatalf("expected preset %q, got %q", tc.wantPreset, got.Preset)
			}
			if !sameDay(got.Range.From, tc.wantFrom) || !sameDay(got.Range.To, tc.wantTo) {
				t.Fatalf("unexpected range %v..%v", got.Range.From, got.Range.To)
			}
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

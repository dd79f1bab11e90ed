package service

import (
	"strings"
	"time"

	"leadbridge/internal/stats/repository"
)

const (
	PresetAll    = "all"
	PresetYear   = "year"
	PresetMonth  = "month"
	PresetCustom = "custom"
)

// DateFilter is a parsed date_preset/date_from/date_to triple.
type DateFilter struct {
	Preset string
	Range  repository.DateRange
}

func parseDay(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return nil
	}
	return &t
}

// ParseDateFilter resolves a preset against now. Unknown presets and
// unparseable dates are ignored rather than rejected; a custom range with both
// ends missing falls back to all, and reversed ends are swapped.
func ParseDateFilter(preset, from, to string, now time.Time) DateFilter {
	loc := now.Location()
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case PresetYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return DateFilter{Preset: PresetYear, Range: repository.DateRange{From: &start}}
	case PresetMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return DateFilter{Preset: PresetMonth, Range: repository.DateRange{From: &start}}
	case PresetCustom:
		f, t := parseDay(from, loc), parseDay(to, loc)
		if f == nil && t == nil {
			return DateFilter{Preset: PresetAll}
		}
		if f != nil && t != nil && t.Before(*f) {
			f, t = t, f
		}
		return DateFilter{Preset: PresetCustom, Range: repository.DateRange{From: f, To: t}}
	}
	return DateFilter{Preset: PresetAll}
}

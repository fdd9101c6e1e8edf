// Package manifest defines the JSON manifest object published alongside
// every payload. Slicer integration fills the slicing-parameter fields;
// this core only derives and fills the metadata summary.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/printforge/catalog/pkg/metaextract"
)

// Summary carries the human-facing print estimates.
type Summary struct {
	EstimateMin *int     `json:"estimate_min,omitempty"`
	TotalText   *string  `json:"total_text,omitempty"`
	FilamentG   *float64 `json:"filament_g,omitempty"`
}

// FirstLayer carries slicer-produced first-layer parameters. This core
// passes them through untouched.
type FirstLayer struct {
	Height     *float64 `json:"height,omitempty"`
	BedTemp    *int     `json:"bed_temp,omitempty"`
	NozzleTemp *int     `json:"nozzle_temp,omitempty"`
	FanSpeed   *int     `json:"fan_speed,omitempty"`
}

// Manifest is the derived facts object for one published payload.
type Manifest struct {
	GCodeKey        string      `json:"gcode_key"`
	PreviewKey      string      `json:"preview_key,omitempty"`
	Summary         Summary     `json:"summary"`
	FilamentTotalMM *float64    `json:"filament_total_mm,omitempty"`
	FilamentTotalG  *float64    `json:"filament_total_g,omitempty"`
	FirstLayer      *FirstLayer `json:"first_layer,omitempty"`
}

// Enrich fills the derived metadata fields from extracted facts. Fields the
// slicer integration already populated are left alone; absent facts leave
// their fields absent.
func Enrich(m *Manifest, facts metaextract.Facts) {
	if m.Summary.EstimateMin == nil && facts.EstimateMinutes != nil {
		m.Summary.EstimateMin = facts.EstimateMinutes
	}
	if m.Summary.TotalText == nil && facts.EstimateText != nil {
		m.Summary.TotalText = facts.EstimateText
	}
	if m.Summary.FilamentG == nil && facts.FilamentGrams != nil {
		m.Summary.FilamentG = facts.FilamentGrams
	}
	if m.FilamentTotalMM == nil && facts.FilamentMillimeters != nil {
		m.FilamentTotalMM = facts.FilamentMillimeters
	}
	if m.FilamentTotalG == nil && facts.FilamentGrams != nil {
		m.FilamentTotalG = facts.FilamentGrams
	}
}

// Encode renders the manifest as canonical (RFC 8785) JSON so republishing
// an identical manifest produces byte-identical objects.
func Encode(m *Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize manifest: %w", err)
	}
	return data, nil
}

// Decode parses manifest JSON.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt manifest data: %w", err)
	}
	return &m, nil
}

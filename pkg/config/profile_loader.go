package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/printforge/catalog/pkg/metaextract"
)

// LoadExtractorProfile reads an extraction-budget profile from a YAML file.
// The file overlays the built-in defaults, so a profile only needs to state
// the fields it changes. An empty path returns the defaults untouched.
func LoadExtractorProfile(path string) (metaextract.Config, error) {
	cfg := metaextract.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading extractor profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing extractor profile %s: %w", path, err)
	}

	if err := validateProfile(cfg); err != nil {
		return cfg, fmt.Errorf("extractor profile %s: %w", path, err)
	}
	return cfg, nil
}

func validateProfile(cfg metaextract.Config) error {
	switch {
	case cfg.HeadProbeBytes <= 0:
		return fmt.Errorf("head_probe_bytes must be positive")
	case cfg.TailProbeBytes <= 0:
		return fmt.Errorf("tail_probe_bytes must be positive")
	case cfg.ChunkSize <= 0:
		return fmt.Errorf("chunk_size must be positive")
	case cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize:
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	case cfg.ScanCeiling <= 0:
		return fmt.Errorf("scan_ceiling must be positive")
	case cfg.FilamentDiameterMM <= 0:
		return fmt.Errorf("filament_diameter_mm must be positive")
	case cfg.FilamentDensityGCM3 <= 0:
		return fmt.Errorf("filament_density_g_cm3 must be positive")
	}
	return nil
}

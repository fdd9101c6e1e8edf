// Package metaextract recovers print-time and filament-consumption facts
// from large, loosely structured job programs without downloading them in
// full. Probes escalate from cheap to expensive: head range, whole small
// file, tail range, then a budget-bounded forward chunked scan.
package metaextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/time/rate"

	"github.com/printforge/catalog/pkg/objstore"
)

// Facts are the extracted annotations. Every field is optional: a nil
// pointer means the fact was not discoverable within the read budget, never
// a computed zero.
type Facts struct {
	EstimateMinutes     *int
	EstimateText        *string
	FilamentGrams       *float64
	FilamentMillimeters *float64
}

func (f *Facts) setEstimate(seconds int64, text string) {
	minutes := int(math.Round(float64(seconds) / 60))
	f.EstimateMinutes = &minutes
	f.EstimateText = &text
}

// any reports whether at least one fact has been found.
func (f *Facts) any() bool {
	return f.EstimateMinutes != nil || f.FilamentGrams != nil || f.FilamentMillimeters != nil
}

// complete reports whether both a time value and a filament value are
// present, the condition that stops the chunked scan early.
func (f *Facts) complete() bool {
	return f.EstimateMinutes != nil && (f.FilamentGrams != nil || f.FilamentMillimeters != nil)
}

// Config tunes probe sizes, the scan budget, and the filament defaults used
// for mass derivation.
type Config struct {
	HeadProbeBytes int64 `yaml:"head_probe_bytes"`
	TailProbeBytes int64 `yaml:"tail_probe_bytes"`
	SmallFileLimit int64 `yaml:"small_file_limit"`
	ChunkSize      int64 `yaml:"chunk_size"`
	ChunkOverlap   int64 `yaml:"chunk_overlap"`
	ScanCeiling    int64 `yaml:"scan_ceiling"`

	// FilamentDiameterMM and FilamentDensityGCM3 are used to derive mass
	// from extruded length when the payload states no mass of its own.
	FilamentDiameterMM  float64 `yaml:"filament_diameter_mm"`
	FilamentDensityGCM3 float64 `yaml:"filament_density_g_cm3"`
}

// DefaultConfig returns the production extraction budget: 128 KiB probes,
// 4 MiB whole-file threshold, 256 KiB chunks and a 48 MiB scan ceiling,
// with 1.75 mm PLA filament defaults.
func DefaultConfig() Config {
	return Config{
		HeadProbeBytes:      128 * 1024,
		TailProbeBytes:      128 * 1024,
		SmallFileLimit:      4 * 1024 * 1024,
		ChunkSize:           256 * 1024,
		ChunkOverlap:        1024,
		ScanCeiling:         48 * 1024 * 1024,
		FilamentDiameterMM:  1.75,
		FilamentDensityGCM3: 1.24,
	}
}

// Extractor reads annotations out of stored payloads by bounded range reads.
type Extractor struct {
	store  objstore.Store
	cfg    Config
	logger *slog.Logger

	// Limiter, when set, paces chunked-scan range reads. Bulk backfill runs
	// use it to keep store traffic bounded.
	Limiter *rate.Limiter
}

// NewExtractor creates an Extractor over the given store. The logger may be
// nil.
func NewExtractor(store objstore.Store, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{store: store, cfg: cfg, logger: logger}
}

// Extract recovers whatever facts the read budget allows for the payload at
// key. sizeHint, when non-nil, avoids a Head call. Exhausting the budget is
// a defined outcome: the returned Facts simply keep their absent fields.
func (e *Extractor) Extract(ctx context.Context, key string, sizeHint *int64) (Facts, error) {
	if err := objstore.ValidateKey(key); err != nil {
		return Facts{}, err
	}

	var facts Facts
	var volumeCM3 float64

	// Stage 1: head probe.
	head, err := e.store.GetRange(ctx, key, 0, e.cfg.HeadProbeBytes)
	if err != nil {
		return Facts{}, fmt.Errorf("head probe of %s: %w", key, err)
	}
	e.scan(head, &facts, &volumeCM3)
	if facts.any() {
		e.finish(key, &facts, volumeCM3, "head")
		return facts, nil
	}

	size, sizeKnown, err := e.resolveSize(ctx, key, sizeHint)
	if err != nil {
		return Facts{}, err
	}

	// Stage 2: whole file, when small enough to read outright.
	if sizeKnown && size <= e.cfg.SmallFileLimit {
		data, err := e.store.GetRange(ctx, key, 0, size)
		if err != nil {
			return Facts{}, fmt.Errorf("full read of %s: %w", key, err)
		}
		e.scan(data, &facts, &volumeCM3)
		e.finish(key, &facts, volumeCM3, "full")
		return facts, nil
	}

	// Stage 3: tail probe; trailing annotations are common.
	if sizeKnown {
		start := size - e.cfg.TailProbeBytes
		if start < 0 {
			start = 0
		}
		tail, err := e.store.GetRange(ctx, key, start, e.cfg.TailProbeBytes)
		if err != nil {
			return Facts{}, fmt.Errorf("tail probe of %s: %w", key, err)
		}
		e.scan(tail, &facts, &volumeCM3)
		if facts.any() {
			e.finish(key, &facts, volumeCM3, "tail")
			return facts, nil
		}
	}

	// Stage 4: bounded forward chunked scan.
	if err := e.chunkedScan(ctx, key, &facts, &volumeCM3); err != nil {
		return Facts{}, err
	}
	e.finish(key, &facts, volumeCM3, "scan")
	return facts, nil
}

func (e *Extractor) resolveSize(ctx context.Context, key string, sizeHint *int64) (int64, bool, error) {
	if sizeHint != nil {
		return *sizeHint, true, nil
	}
	info, err := e.store.Head(ctx, key)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return 0, false, fmt.Errorf("size lookup of %s: %w", key, err)
		}
		// Size is an optimization input; keep escalating without it.
		e.logger.Debug("payload size unavailable", slog.String("key", key), slog.Any("error", err))
		return 0, false, nil
	}
	return info.Size, true, nil
}

// chunkedScan reads fixed-size chunks forward from the start of the object,
// carrying the trailing overlap of each chunk onto the next so annotations
// straddling a boundary are not missed. It stops once both a time and a
// filament fact are present, the object ends, or the byte ceiling is hit.
func (e *Extractor) chunkedScan(ctx context.Context, key string, facts *Facts, volumeCM3 *float64) error {
	var offset int64
	var carry []byte
	read := int64(0)

	for read < e.cfg.ScanCeiling && !facts.complete() {
		if e.Limiter != nil {
			if err := e.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("chunked scan of %s: %w", key, err)
			}
		}

		chunkLen := e.cfg.ChunkSize
		if remaining := e.cfg.ScanCeiling - read; remaining < chunkLen {
			chunkLen = remaining
		}
		chunk, err := e.store.GetRange(ctx, key, offset, chunkLen)
		if err != nil {
			return fmt.Errorf("chunked scan of %s at %d: %w", key, offset, err)
		}
		if len(chunk) == 0 {
			break
		}

		window := append(append([]byte{}, carry...), chunk...)
		e.scan(window, facts, volumeCM3)

		if tail := int64(len(chunk)); tail > e.cfg.ChunkOverlap {
			carry = append(carry[:0], chunk[tail-e.cfg.ChunkOverlap:]...)
		} else {
			carry = append(carry[:0], chunk...)
		}

		offset += int64(len(chunk))
		read += int64(len(chunk))

		if int64(len(chunk)) < chunkLen {
			break // short read: end of object
		}
	}
	return nil
}

func (e *Extractor) scan(data []byte, facts *Facts, volumeCM3 *float64) {
	if len(data) == 0 {
		return
	}
	text := string(data)
	scanTime(text, facts)
	scanFilament(text, facts, volumeCM3)
}

// finish derives filament mass when it was not stated outright. Derivation
// is best-effort: absent inputs yield an absent mass, not a computed zero.
func (e *Extractor) finish(key string, facts *Facts, volumeCM3 float64, stage string) {
	if facts.FilamentGrams == nil && volumeCM3 > 0 && e.cfg.FilamentDensityGCM3 > 0 {
		g := volumeCM3 * e.cfg.FilamentDensityGCM3
		facts.FilamentGrams = &g
	}
	if facts.FilamentGrams == nil && facts.FilamentMillimeters != nil {
		if g, ok := massFromLength(*facts.FilamentMillimeters, e.cfg.FilamentDiameterMM, e.cfg.FilamentDensityGCM3); ok {
			facts.FilamentGrams = &g
		}
	}

	e.logger.Debug("metadata extraction finished",
		slog.String("key", key),
		slog.String("stage", stage),
		slog.Bool("found_time", facts.EstimateMinutes != nil),
		slog.Bool("found_filament", facts.FilamentGrams != nil || facts.FilamentMillimeters != nil))
}

// massFromLength derives grams from extruded length:
// mass = density * pi * (diameter/2)^2 * length. Lengths are millimeters,
// density is g/cm^3, so the mm^3 volume is scaled down by 1000.
func massFromLength(lengthMM, diameterMM, densityGCM3 float64) (float64, bool) {
	if lengthMM <= 0 || diameterMM <= 0 || densityGCM3 <= 0 {
		return 0, false
	}
	r := diameterMM / 2
	volumeMM3 := math.Pi * r * r * lengthMM
	return densityGCM3 * volumeMM3 / 1000, true
}

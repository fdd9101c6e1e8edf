package metaextract

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printforge/catalog/pkg/objstore"
)

// countingStore records range-read traffic so tests can assert which probe
// stages ran.
type countingStore struct {
	objstore.Store
	rangeReads int
	bytesRead  int64
}

func (s *countingStore) GetRange(ctx context.Context, key string, start, length int64) ([]byte, error) {
	s.rangeReads++
	data, err := s.Store.GetRange(ctx, key, start, length)
	s.bytesRead += int64(len(data))
	return data, err
}

func testConfig() Config {
	cfg := DefaultConfig()
	// Scaled-down budget so stage geometry is testable without multi-MiB
	// payloads: 64 B probes, 256 B whole-file limit, 128 B chunks, 1 KiB
	// ceiling.
	cfg.HeadProbeBytes = 64
	cfg.TailProbeBytes = 64
	cfg.SmallFileLimit = 256
	cfg.ChunkSize = 128
	cfg.ChunkOverlap = 32
	cfg.ScanCeiling = 1024
	return cfg
}

func putPayload(t *testing.T, store objstore.Store, key string, data []byte) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), key, data, "text/x-gcode"))
}

func TestExtractHeadProbe(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()
	store := &countingStore{Store: mem}

	payload := strings.Join([]string{
		"; generated by PrusaSlicer 2.7.0",
		"; estimated printing time (normal mode) = 1h 2m 3s",
		"; filament used [g] = 12.50",
		"G28 ; home",
	}, "\n")
	putPayload(t, mem, "staging/x/j.gcode", []byte(payload))

	ex := NewExtractor(store, DefaultConfig(), nil)
	facts, err := ex.Extract(ctx, "staging/x/j.gcode", nil)
	require.NoError(t, err)

	require.NotNil(t, facts.EstimateMinutes)
	assert.Equal(t, 62, *facts.EstimateMinutes)
	require.NotNil(t, facts.EstimateText)
	assert.Equal(t, "1h 2m 3s", *facts.EstimateText)
	require.NotNil(t, facts.FilamentGrams)
	assert.InDelta(t, 12.50, *facts.FilamentGrams, 1e-9)

	// Everything was in the first probe; no fallback stages ran.
	assert.Equal(t, 1, store.rangeReads)
}

func TestExtractSmallFileFullRead(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()
	store := &countingStore{Store: mem}

	// Annotation past the head probe but within the small-file limit.
	payload := strings.Repeat("G1 X0 Y0\n", 12) + ";TIME:3600\n"
	require.Less(t, int64(64), int64(len(payload)))
	putPayload(t, mem, "k.gcode", []byte(payload))

	ex := NewExtractor(store, testConfig(), nil)
	facts, err := ex.Extract(ctx, "k.gcode", nil)
	require.NoError(t, err)

	require.NotNil(t, facts.EstimateMinutes)
	assert.Equal(t, 60, *facts.EstimateMinutes)
	require.NotNil(t, facts.EstimateText)
	assert.Equal(t, "1h 0m", *facts.EstimateText)
}

func TestExtractTailProbe(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()
	store := &countingStore{Store: mem}

	// Too large for a full read; annotations only in the trailing bytes.
	var b bytes.Buffer
	for b.Len() < 600 {
		b.WriteString("G1 X10 Y10 E0.1\n")
	}
	b.WriteString("; total filament used [g] = 33.10\n")
	b.WriteString("; print time = 2h 15m\n")
	putPayload(t, mem, "big.gcode", b.Bytes())

	ex := NewExtractor(store, testConfig(), nil)
	facts, err := ex.Extract(ctx, "big.gcode", nil)
	require.NoError(t, err)

	require.NotNil(t, facts.EstimateMinutes)
	assert.Equal(t, 135, *facts.EstimateMinutes)
	require.NotNil(t, facts.FilamentGrams)
	assert.InDelta(t, 33.10, *facts.FilamentGrams, 1e-9)

	// Head probe, then tail probe: two range reads, no chunked scan.
	assert.Equal(t, 2, store.rangeReads)
}

func TestExtractChunkedScanFindsMidFileAnnotation(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()
	store := &countingStore{Store: mem}

	// Annotation buried mid-file, beyond head and tail probes, within the
	// scan ceiling.
	var b bytes.Buffer
	for b.Len() < 500 {
		b.WriteString("G1 X10 Y10 E0.1\n")
	}
	b.WriteString(";TIME:600\n")
	b.WriteString("; filament used [mm] = 1000.0\n")
	for b.Len() < 900 {
		b.WriteString("G1 X20 Y20 E0.2\n")
	}
	putPayload(t, mem, "mid.gcode", b.Bytes())

	ex := NewExtractor(store, testConfig(), nil)
	facts, err := ex.Extract(ctx, "mid.gcode", nil)
	require.NoError(t, err)

	require.NotNil(t, facts.EstimateMinutes)
	assert.Equal(t, 10, *facts.EstimateMinutes)
	require.NotNil(t, facts.FilamentMillimeters)
	assert.InDelta(t, 1000.0, *facts.FilamentMillimeters, 1e-9)

	// Mass derived from length with the 1.75 mm / 1.24 g/cm3 defaults:
	// 1.24 * pi * 0.875^2 * 1000 / 1000.
	require.NotNil(t, facts.FilamentGrams)
	assert.InDelta(t, 2.982, *facts.FilamentGrams, 0.01)
}

func TestExtractChunkBoundaryStraddle(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()
	store := &countingStore{Store: mem}

	cfg := testConfig()

	// Place the annotation so it straddles the first chunk boundary; the
	// overlap carry must still find it.
	line := "; filament used [g] = 77.70\n"
	pad := int(cfg.ChunkSize) - len(line)/2
	var b bytes.Buffer
	for b.Len() < pad {
		b.WriteByte('G')
		b.WriteByte('\n')
	}
	b.Truncate(pad)
	b.WriteString(line)
	b.WriteString(";TIME:60\n")
	for b.Len() < 700 {
		b.WriteString("G1 X1 Y1\n")
	}
	putPayload(t, mem, "straddle.gcode", b.Bytes())

	ex := NewExtractor(store, cfg, nil)
	facts, err := ex.Extract(ctx, "straddle.gcode", nil)
	require.NoError(t, err)

	require.NotNil(t, facts.FilamentGrams)
	assert.InDelta(t, 77.70, *facts.FilamentGrams, 1e-9)
}

func TestExtractCeilingExhaustedIsNotAnError(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()
	store := &countingStore{Store: mem}

	cfg := testConfig()

	// Annotation beyond the scan ceiling: every stage comes up empty and
	// the result is absent fields, not an error.
	var b bytes.Buffer
	for int64(b.Len()) < cfg.ScanCeiling+200 {
		b.WriteString("G1 X1 Y1 E0.01\n")
	}
	b.WriteString("; estimated printing time (normal mode) = 5h 0m 0s\n")
	for i := 0; i < 8; i++ {
		b.WriteString("G1 X2 Y2 E0.01\n")
	}
	putPayload(t, mem, "huge.gcode", b.Bytes())

	ex := NewExtractor(store, cfg, nil)
	facts, err := ex.Extract(ctx, "huge.gcode", nil)
	require.NoError(t, err)

	assert.Nil(t, facts.EstimateMinutes)
	assert.Nil(t, facts.EstimateText)
	assert.Nil(t, facts.FilamentGrams)
	assert.Nil(t, facts.FilamentMillimeters)
	assert.LessOrEqual(t, store.bytesRead, cfg.ScanCeiling+cfg.SmallFileLimit)
}

func TestExtractMissingPayload(t *testing.T) {
	ctx := context.Background()
	ex := NewExtractor(objstore.NewMemStore(), testConfig(), nil)

	_, err := ex.Extract(ctx, "absent.gcode", nil)
	assert.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestExtractRejectsBadKey(t *testing.T) {
	ctx := context.Background()
	ex := NewExtractor(objstore.NewMemStore(), testConfig(), nil)

	_, err := ex.Extract(ctx, "../escape.gcode", nil)
	assert.ErrorIs(t, err, objstore.ErrInvalidKey)
}

func TestMassFromLength(t *testing.T) {
	g, ok := massFromLength(1000, 1.75, 1.24)
	require.True(t, ok)
	assert.InDelta(t, 2.982, g, 0.01)

	_, ok = massFromLength(0, 1.75, 1.24)
	assert.False(t, ok)
	_, ok = massFromLength(1000, 0, 1.24)
	assert.False(t, ok)
	_, ok = massFromLength(1000, 1.75, 0)
	assert.False(t, ok)
}

func TestVolumeDerivation(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemStore()

	payload := ";TIME:120\n; filament used [cm3] = 10.00\n"
	putPayload(t, mem, "vol.gcode", []byte(payload))

	ex := NewExtractor(mem, DefaultConfig(), nil)
	facts, err := ex.Extract(ctx, "vol.gcode", nil)
	require.NoError(t, err)

	// Volume times density, no length figure involved.
	require.NotNil(t, facts.FilamentGrams)
	assert.InDelta(t, 12.4, *facts.FilamentGrams, 1e-9)
	assert.Nil(t, facts.FilamentMillimeters)
}

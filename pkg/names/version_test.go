package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersioned(t *testing.T) {
	cases := []struct {
		in      string
		stem    string
		version int
		ext     string
	}{
		{"Foo.gcode", "Foo", 0, ".gcode"},
		{"Foo_V3.gcode", "Foo", 3, ".gcode"},
		{"Foo_V12.gcode", "Foo", 12, ".gcode"},
		{"Foo_V0.gcode", "Foo_V0", 0, ".gcode"},
		{"Foo_Vx.gcode", "Foo_Vx", 0, ".gcode"},
		{"Foo", "Foo", 0, ""},
		{"Foo_V2", "Foo", 2, ""},
		{"a_V2_V3.gcode", "a_V2", 3, ".gcode"},
		{"part.with.dots_V4.gcode", "part.with.dots", 4, ".gcode"},
	}
	for _, c := range cases {
		stem, version, ext := ParseVersioned(c.in)
		assert.Equal(t, c.stem, stem, c.in)
		assert.Equal(t, c.version, version, c.in)
		assert.Equal(t, c.ext, ext, c.in)
	}
}

func TestBumpOnce(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Foo.gcode", "Foo_V2.gcode"},
		{"Foo_V2.gcode", "Foo_V3.gcode"},
		{"Foo_V99.gcode", "Foo_V100.gcode"},
		{"Foo", "Foo_V2"},
		{"Foo_V0.gcode", "Foo_V0_V2.gcode"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BumpOnce(c.in), c.in)
	}
}

func TestEnsureExtension(t *testing.T) {
	assert.Equal(t, "foo.gcode", EnsureExtension("foo", ".gcode"))
	assert.Equal(t, "foo.gcode", EnsureExtension("foo", "gcode"))
	assert.Equal(t, "foo.gcode", EnsureExtension(" foo.gcode ", ".gcode"))
	assert.Equal(t, "foo.GCODE", EnsureExtension("foo.GCODE", ".gcode"))
	assert.Equal(t, "foo", EnsureExtension("foo", ""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "benchy_v2.gcode", Normalize("  Benchy_V2.GCODE "))
}

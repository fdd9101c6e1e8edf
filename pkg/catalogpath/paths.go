// Package catalogpath maps model and job identifiers onto the catalog's
// deterministic key layout:
//
//	catalog/<Model>/<JobBase>/<JobBase>.<ext>        payload
//	catalog/<Model>/<JobBase>/<JobBase>.json         manifest
//	catalog/<Model>/<JobBase>/<JobBase>.preview.png  preview
//
// and onto randomized staging prefixes under staging/. Resolution is pure
// formatting: it never fails and performs no I/O.
package catalogpath

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultModel is used when the model identifier sanitizes to nothing.
	DefaultModel = "Default"
	// DefaultJob is used when the job name sanitizes to nothing.
	DefaultJob = "Model"
	// DefaultExtension is used when the job name carries no extension.
	DefaultExtension = ".gcode"
)

// Paths is the final catalog key triple for one published job.
type Paths struct {
	Dir      string
	Payload  string
	Manifest string
	Preview  string
}

// Handle is an ephemeral staging location for one publish attempt. The
// random token keeps concurrent attempts for the same job name from
// colliding before a final name is chosen.
type Handle struct {
	Prefix   string
	Payload  string
	Manifest string
	Preview  string
}

var titleCaser = cases.Title(language.English)

// Sanitize restricts a path segment to letters, digits, '.', '_' and '-'.
// Whitespace runs collapse to a single underscore; everything else is
// dropped. Leading and trailing dots are trimmed so a segment can never be
// "." or "..".
func Sanitize(segment string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range segment {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			inSpace = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			if inSpace && b.Len() > 0 {
				b.WriteByte('_')
			}
			inSpace = false
			b.WriteRune(r)
		default:
			// dropped
		}
	}
	return strings.Trim(b.String(), ".")
}

// ModelSegment returns the title-cased, sanitized model identifier, falling
// back to DefaultModel for empty input.
func ModelSegment(model string) string {
	s := Sanitize(model)
	if s == "" {
		return DefaultModel
	}
	return titleCaser.String(s)
}

// JobBase returns the sanitized job name with any extension stripped, plus
// the extension itself (DefaultExtension when absent).
func JobBase(jobName string) (base, ext string) {
	s := Sanitize(jobName)
	if s == "" {
		return DefaultJob, DefaultExtension
	}
	if i := strings.LastIndex(s, "."); i > 0 {
		return s[:i], s[i:]
	}
	return s, DefaultExtension
}

// FinalPaths resolves the final catalog key triple for (model, jobName).
func FinalPaths(model, jobName string) Paths {
	dir := "catalog/" + ModelSegment(model) + "/"
	base, ext := JobBase(jobName)
	dir += base
	return Paths{
		Dir:      dir,
		Payload:  dir + "/" + base + ext,
		Manifest: dir + "/" + base + ".json",
		Preview:  dir + "/" + base + ".preview.png",
	}
}

// NewStagingHandle resolves a fresh staging location for (model, jobName).
// Each call embeds a new random token; handles are never reused across
// publish attempts.
func NewStagingHandle(model, jobName string) Handle {
	return HandleForToken(model, jobName, uuid.NewString())
}

// HandleForToken rebuilds the staging location for an already-issued token,
// so a publish started by one process can be committed by another.
func HandleForToken(model, jobName, token string) Handle {
	base, ext := JobBase(jobName)
	prefix := "staging/catalog/" + ModelSegment(model) + "/" + base + "/" + token + "/"
	return Handle{
		Prefix:   prefix,
		Payload:  prefix + base + ext,
		Manifest: prefix + base + ".json",
		Preview:  prefix + base + ".preview.png",
	}
}

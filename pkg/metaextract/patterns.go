package metaextract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Slicers annotate job programs with comment lines describing the expected
// print time and filament consumption. The formats below cover the common
// families (token style "1h 2m 3s", clock style "H:M:S", plain seconds, and
// explicit gram/millimeter/volume figures). Patterns are applied in a fixed
// order; the first match for each fact wins.

var timeTokenPatterns = []*regexp.Regexp{
	// "; estimated printing time (normal mode) = 1h 2m 3s"
	regexp.MustCompile(`(?im)estimated printing time[^=\n]*=\s*((?:\d+\s*d\s*)?(?:\d+\s*h\s*)?(?:\d+\s*m\s*)?(?:\d+\s*s)?)`),
	// "; print time = 2h 15m"
	regexp.MustCompile(`(?im);\s*print time\s*[:=]\s*((?:\d+\s*d\s*)?(?:\d+\s*h\s*)?(?:\d+\s*m\s*)?(?:\d+\s*s)?)\s*$`),
}

var timeClockPattern = regexp.MustCompile(`(?im)(?:print time|total time|time elapsed)[^\d\n]*?(\d+):(\d{2}):(\d{2})`)

var timeSecondsPatterns = []*regexp.Regexp{
	// ";TIME:3723" (Cura)
	regexp.MustCompile(`(?im)^;\s*TIME:\s*(\d+)\s*$`),
	// ";PRINT.TIME: 3723"
	regexp.MustCompile(`(?im)^;\s*PRINT\.TIME:\s*(\d+)\s*$`),
}

var filamentGramPatterns = []*regexp.Regexp{
	// "; filament used [g] = 12.50" / "; total filament used [g] = 12.50"
	regexp.MustCompile(`(?im)filament used\s*\[g\]\s*=\s*([0-9]+(?:\.[0-9]+)?)`),
	// "; filament weight = 12.5 g"
	regexp.MustCompile(`(?im);\s*filament[^=\n]*=\s*([0-9]+(?:\.[0-9]+)?)\s*g\b`),
}

var filamentMMPatterns = []*regexp.Regexp{
	// "; filament used [mm] = 3910.2"
	regexp.MustCompile(`(?im)filament used\s*\[mm\]\s*=\s*([0-9]+(?:\.[0-9]+)?)`),
	// "; filament used = 3910.2mm"
	regexp.MustCompile(`(?im)filament used\s*=\s*([0-9]+(?:\.[0-9]+)?)\s*mm\b`),
}

// ";Filament used: 3.91m" (Cura, meters)
var filamentMeterPattern = regexp.MustCompile(`(?im)^;\s*Filament used:\s*([0-9]+(?:\.[0-9]+)?)\s*m\s*$`)

// "; filament used [cm3] = 9.42"
var filamentVolumePattern = regexp.MustCompile(`(?im)filament used\s*\[cm3\]\s*=\s*([0-9]+(?:\.[0-9]+)?)`)

var tokenPartPattern = regexp.MustCompile(`(\d+)\s*([dhms])`)

// parseTokenDuration turns "1h 2m 3s" (any subset of d/h/m/s parts) into
// seconds. Returns 0 for no parts.
func parseTokenDuration(text string) int64 {
	var seconds int64
	for _, m := range tokenPartPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "d":
			seconds += n * 86400
		case "h":
			seconds += n * 3600
		case "m":
			seconds += n * 60
		case "s":
			seconds += n
		}
	}
	return seconds
}

// formatDuration renders seconds the way slicers habitually do, for the
// manifest's human-readable summary text.
func formatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0 && s > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// scanTime searches text for a print-time annotation and fills the absent
// time fields of f.
func scanTime(text string, f *Facts) {
	if f.EstimateMinutes != nil {
		return
	}

	for _, re := range timeTokenPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			token := strings.TrimSpace(m[1])
			if seconds := parseTokenDuration(token); seconds > 0 {
				f.setEstimate(seconds, token)
				return
			}
		}
	}

	if m := timeClockPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.ParseInt(m[1], 10, 64)
		mi, _ := strconv.ParseInt(m[2], 10, 64)
		s, _ := strconv.ParseInt(m[3], 10, 64)
		seconds := h*3600 + mi*60 + s
		if seconds > 0 {
			f.setEstimate(seconds, formatDuration(seconds))
			return
		}
	}

	for _, re := range timeSecondsPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			seconds, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil && seconds > 0 {
				f.setEstimate(seconds, formatDuration(seconds))
				return
			}
		}
	}
}

// scanFilament searches text for filament-usage annotations and fills the
// absent filament fields of f. volumeCM3 is reported separately so the
// caller can derive mass from volume when no explicit figure exists.
func scanFilament(text string, f *Facts, volumeCM3 *float64) {
	if f.FilamentGrams == nil {
		for _, re := range filamentGramPatterns {
			if m := re.FindStringSubmatch(text); m != nil {
				if g, err := strconv.ParseFloat(m[1], 64); err == nil && g > 0 {
					f.FilamentGrams = &g
					break
				}
			}
		}
	}

	if f.FilamentMillimeters == nil {
		for _, re := range filamentMMPatterns {
			if m := re.FindStringSubmatch(text); m != nil {
				if mm, err := strconv.ParseFloat(m[1], 64); err == nil && mm > 0 {
					f.FilamentMillimeters = &mm
					break
				}
			}
		}
	}
	if f.FilamentMillimeters == nil {
		if m := filamentMeterPattern.FindStringSubmatch(text); m != nil {
			if meters, err := strconv.ParseFloat(m[1], 64); err == nil && meters > 0 {
				mm := meters * 1000
				f.FilamentMillimeters = &mm
			}
		}
	}

	if *volumeCM3 == 0 {
		if m := filamentVolumePattern.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
				*volumeCM3 = v
			}
		}
	}
}

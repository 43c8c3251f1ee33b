package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Part-number notation that would otherwise collapse into a bare hyphen.
var symbolReplacer = strings.NewReplacer(
	"&", " and ",
	"+", " plus ",
	`"`, " inch ",
	"°", " deg ",
	"ø", " dia ",
)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Pipe Couplings" → "pipe-couplings"
//   - "Valves & Fittings" → "valves-and-fittings"
//   - "2\" Nominal Bore" → "2-inch-nominal-bore"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = symbolReplacer.Replace(slug)

	// Any run of non-alphanumerics becomes a single hyphen.
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

package features

import (
	gomath "math"
	"strconv"
	"strings"

	"github.com/Faultbox/geobake/pkg/osm"
)

// parseNumber parses a numeric tag value. An optional trailing "m" unit is
// accepted; non-finite values are rejected.
func parseNumber(s string) (float32, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "m"))
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || gomath.IsNaN(v) || gomath.IsInf(v, 0) {
		return 0, false
	}
	return float32(v), true
}

// present reports whether key is set to anything other than "no".
func present(w *osm.Way, key string) bool {
	v, ok := w.Tag(key)
	return ok && v != "no"
}

// Package suggest finds near misses for mistyped resource types and field
// names.
package suggest

import (
	"strings"

	"github.com/agext/levenshtein"
)

// String returns the candidate closest to want, or an empty string when none
// is close enough. Case, underscores and hyphens are ignored, so WafPolicy
// and waf-policy both match wafpolicy.
//
// The allowed distance grows with the length of want.
func String(want string, candidates []string) string {
	w := fold(want)
	maxDist := len(w) / 5
	if maxDist == 0 {
		maxDist = 1
	}

	best, bestDist := "", maxDist+1
	for _, cand := range candidates {
		d := levenshtein.Distance(w, fold(cand), nil)
		if d == 0 {
			return cand
		}
		if d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func fold(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

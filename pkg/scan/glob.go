// KEYS lookups filter cached graph keys with Redis-style glob patterns; the following module implements the matching.

package scan

import (
	"iter"

	"v.io/v23/glob"
)

// MatchGlob filters the `keys` stream down to the keys matching the given glob `pattern`.
// An invalid pattern matches nothing.
func MatchGlob(pattern string, keys iter.Seq[string]) iter.Seq[string] {
	parsedPattern, err := glob.Parse(pattern)
	if err != nil {
		return func(yield func(string) bool) {}
	}
	matcher := parsedPattern.Head()
	return func(yield func(string) bool) {
		for key := range keys {
			if matcher.Match(key) {
				if !yield(key) {
					return
				}
			}
		}
	}
}

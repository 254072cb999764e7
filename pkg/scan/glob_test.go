package scan

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlob(t *testing.T) {
	keys := []string{"app-1", "app-2", "library-graph"}

	for _, testCase := range []struct {
		name     string
		glob     string
		expected []string
	}{
		{name: "match all", glob: "*", expected: []string{"app-1", "app-2", "library-graph"}},
		{name: "match with ?", glob: "app-?", expected: []string{"app-1", "app-2"}},
		{name: "match with * at the end", glob: "app*", expected: []string{"app-1", "app-2"}},
		{name: "match with * at the beginning", glob: "*graph", expected: []string{"library-graph"}},
		{name: "match with multiple *", glob: "*a*", expected: []string{"app-1", "app-2", "library-graph"}},
		{name: "exact", glob: "app-2", expected: []string{"app-2"}},
		{name: "no match", glob: "nomatch", expected: nil},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			got := slices.Collect(MatchGlob(testCase.glob, slices.Values(keys)))
			assert.Equal(t, testCase.expected, got)
		})
	}
}

func TestMatchGlob_StopsEarly(t *testing.T) {
	var first string
	for key := range MatchGlob("app-*", slices.Values([]string{"app-1", "app-2"})) {
		first = key
		break
	}
	assert.Equal(t, "app-1", first)
}

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyColumn(t *testing.T) {
	system := []string{"id", "ID", " submitdate ", "Token", "ipaddr", "grouptime12", "duration_SWLS", "interviewtime", "seed"}
	for _, name := range system {
		assert.Equal(t, ClassSystem, ClassifyColumn(name), "expected %q to be a system column", name)
	}

	items := []string{"SWLS01", "PANAS03run02", "grouptime", "durations", "code"}
	for _, name := range items {
		assert.Equal(t, ClassItem, ClassifyColumn(name), "expected %q to be an item column", name)
	}
}

func TestParseRunPrecedence(t *testing.T) {
	cases := []struct {
		name string
		base string
		run  int
		ok   bool
	}{
		// BIDS-style beats the looser platform pattern.
		{"SWLS01_run-02", "SWLS01", 2, true},
		{"SWLS01run02", "SWLS01", 2, true},
		{"swls01RUN3", "swls01", 3, true},
		{"PANAS01", "PANAS01", 0, false},
		{"run02", "run02", 0, false},
		{"base_run-7", "base", 7, true},
	}

	for _, tc := range cases {
		base, run, ok := ParseRun(tc.name)
		assert.Equal(t, tc.ok, ok, "ok mismatch for %q", tc.name)
		assert.Equal(t, tc.base, base, "base mismatch for %q", tc.name)
		assert.Equal(t, tc.run, run, "run mismatch for %q", tc.name)
	}
}

func TestGroupByRun(t *testing.T) {
	groups := GroupByRun([]string{"SWLS01", "SWLS02run02", "SWLS02", "PANAS01_run-01"})

	assert.Equal(t, []string{"SWLS01"}, groups["SWLS01"][0])
	assert.Equal(t, []string{"SWLS02"}, groups["SWLS02"][0])
	assert.Equal(t, []string{"SWLS02run02"}, groups["SWLS02"][2])
	assert.Equal(t, []string{"PANAS01_run-01"}, groups["PANAS01"][1])
}

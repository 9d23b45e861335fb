package license_test

import (
	"testing"

	"github.com/warp/license-engine/license"
)

func TestNextRunID(t *testing.T) {
	cases := []struct {
		name string
		last string
		want string
	}{
		{"increments last id", "SIM100005", "SIM100006"},
		{"no prior id starts at base", "", "SIM100000"},
		{"malformed numeric suffix restarts at base", "SIMabc", "SIM100000"},
		{"missing prefix restarts at base", "100005", "SIM100000"},
		{"base id increments normally", "SIM100000", "SIM100001"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := license.NextRunID(c.last); got != c.want {
				t.Errorf("NextRunID(%q) = %q, want %q", c.last, got, c.want)
			}
		})
	}
}

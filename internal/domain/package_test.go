package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipdock/backend/internal/domain"
)

func TestVersionNewer(t *testing.T) {
	tests := map[string]struct {
		candidate string
		current   string
		want      bool
	}{
		"strictly higher": {candidate: "1.26.0", current: "1.24.0", want: true},
		"equal": {candidate: "1.26.0", current: "1.26.0", want: false},
		"lower": {candidate: "1.24.0", current: "1.26.0", want: false},
		"unparsable candidate loses": {candidate: "not-a-version", current: "1.0.0", want: false},
		"unparsable current keeps incumbent": {candidate: "2.0.0", current: "weird", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.VersionNewer(tc.candidate, tc.current))
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := map[string]struct {
		installed string
		latest    string
		want      bool
	}{
		"newer installed": {installed: "2.32.0", latest: "2.31.0", want: true},
		"equal": {installed: "2.31.0", latest: "2.31.0", want: true},
		"older installed": {installed: "2.30.0", latest: "2.31.0", want: false},
		"unparsable falls back to equality": {installed: "local-build", latest: "local-build", want: true},
		"unparsable mismatch": {installed: "local-build", latest: "2.31.0", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.VersionAtLeast(tc.installed, tc.latest))
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"plain": {in: "1.26.0", want: "1.26.0"},
		"post release": {in: "1.26.0.post1", want: "1.26.0"},
		"rc suffix": {in: "2.0.0.rc1", want: "2.0.0"},
		"dev suffix": {in: "2.0.0.dev3", want: "2.0.0"},
		"dash beta": {in: "2.0.0-beta.1", want: "2.0.0"},
		"empty": {in: "", want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.NormalizeVersion(tc.in))
		})
	}
}

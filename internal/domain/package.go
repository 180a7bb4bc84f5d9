package domain

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// PackageRecord describes one installed package enriched with registry
// metadata. Built fresh per listing request, never persisted.
type PackageRecord struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	LatestVersion string `json:"latestVersion"`
	Description   string `json:"description"`
	IsSystem      bool   `json:"isSystem"`
	IsCore        bool   `json:"isCore"`
	IsAIModel     bool   `json:"isAIModel"`
	IsAppRequired bool   `json:"isAppRequired"`
	IsLatest      bool   `json:"isLatest"`
}

// VersionNewer reports whether candidate is a strictly higher version
// than current. Unparsable versions never win, so on a duplicate name
// the incumbent entry is kept.
func VersionNewer(candidate, current string) bool {
	cv, err := goversion.NewVersion(candidate)
	if err != nil {
		return false
	}
	ev, err := goversion.NewVersion(current)
	if err != nil {
		return false
	}
	return cv.GreaterThan(ev)
}

// VersionAtLeast reports whether installed >= latest. Falls back to
// string equality when either side does not parse.
func VersionAtLeast(installed, latest string) bool {
	iv, err := goversion.NewVersion(installed)
	if err != nil {
		return installed == latest
	}
	lv, err := goversion.NewVersion(latest)
	if err != nil {
		return installed == latest
	}
	return iv.GreaterThanOrEqual(lv)
}

// NormalizeVersion strips post-release and pre-release suffixes so two
// version strings can be compared for practical equality before a
// precise comparison is attempted.
func NormalizeVersion(v string) string {
	if v == "" {
		return ""
	}
	if i := strings.Index(v, ".post"); i >= 0 {
		v = v[:i]
	}
	for _, marker := range []string{"a", "b", "rc", "dev", "alpha", "beta", "pre"} {
		if i := strings.Index(v, "."+marker); i >= 0 {
			v = v[:i]
		}
		if i := strings.Index(v, "-"+marker); i >= 0 {
			v = v[:i]
		}
	}
	return v
}

package domain

type EnvironmentType string

const (
	EnvironmentTypeSystem     EnvironmentType = "system"
	EnvironmentTypeVirtualenv EnvironmentType = "virtualenv"
	EnvironmentTypeConda      EnvironmentType = "conda"
	EnvironmentTypeCustom     EnvironmentType = "custom"
)

// Environment is one configured Python interpreter the dashboard can
// drive pip against.
type Environment struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Type    EnvironmentType `json:"type"`
	Version string          `json:"version"`
}

// EnvironmentSet is the persisted collection of environments plus the
// id of the active one.
type EnvironmentSet struct {
	Environments []Environment `json:"environments"`
	Current      string        `json:"current"`
}

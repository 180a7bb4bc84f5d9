package domain

import "time"

// RegistryInfo is the metadata the package index reports for one
// package name.
type RegistryInfo struct {
	Version  string   `json:"version"`
	Summary  string   `json:"summary"`
	Releases []string `json:"releases"`
}

// RegistryEntry is the persisted cache row for one registry lookup.
// Entries older than the configured TTL are treated as absent.
type RegistryEntry struct {
	Name      string    `gorm:"size:255;primaryKey" json:"name"`
	Version   string    `gorm:"size:100" json:"version"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Releases  string    `gorm:"type:text" json:"-"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

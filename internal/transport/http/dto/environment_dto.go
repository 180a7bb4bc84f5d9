package dto

import (
	"strings"

	"github.com/pipdock/backend/internal/domain"
)

type SaveEnvironmentRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

func (r *SaveEnvironmentRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Path) == "" {
		errs = append(errs, "path is required")
	}
	return errs
}

func (r *SaveEnvironmentRequest) ToDomain() domain.Environment {
	return domain.Environment{
		ID:   r.ID,
		Name: r.Name,
		Path: strings.TrimSpace(r.Path),
		Type: domain.EnvironmentType(r.Type),
	}
}

type SwitchEnvironmentRequest struct {
	ID string `json:"id"`
}

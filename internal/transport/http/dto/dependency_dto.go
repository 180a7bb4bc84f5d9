package dto

import "strings"

type PackageNameRequest struct {
	Name string `json:"name"`
}

func (r *PackageNameRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

type SwitchVersionRequest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (r *SwitchVersionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(r.Version) == "" {
		errs = append(errs, "version is required")
	}
	return errs
}

type BatchPackagesRequest struct {
	Packages []string `json:"packages"`
}

func (r *BatchPackagesRequest) Validate() []string {
	var errs []string
	if len(r.Packages) == 0 {
		errs = append(errs, "packages list is required")
	}
	return errs
}

type CacheInfoResponse struct {
	Entries    int64 `json:"entries"`
	LastUpdate int64 `json:"last_update"`
}

type SystemInfoResponse struct {
	PythonVersion string `json:"python_version"`
	PipVersion    string `json:"pip_version"`
}

type CategoriesResponse struct {
	System      []string `json:"system"`
	Core        []string `json:"core"`
	AIModel     []string `json:"ai_model"`
	AppRequired []string `json:"app_required"`
}

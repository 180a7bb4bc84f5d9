package ports

import (
	"context"

	"github.com/pipdock/backend/internal/domain"
)

// CommandRunner executes one external command to completion. Run
// streams the command's merged output into task progress updates and
// reports success; it never returns an error value, failures end up in
// the task record. RunCombined is the short-command variant returning
// the combined output for synchronous callers.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, taskID, label string) bool
	RunCombined(ctx context.Context, argv []string) (string, error)
}

// RegistryClient queries the package index for metadata about one
// package. Lookup failures are soft: an empty info with a nil error
// means the index had nothing to say.
type RegistryClient interface {
	Lookup(ctx context.Context, name string) (*domain.RegistryInfo, error)
}

type DependencyService interface {
	List(ctx context.Context) ([]domain.PackageRecord, error)
	Get(ctx context.Context, name string, forceRefresh bool) (*domain.PackageRecord, error)
	Graph(ctx context.Context, name string, maxDepth int) (*domain.DependencyGraph, error)

	InstallAsync(name string) (string, error)
	InstallFileAsync(path, label string, cleanup func()) (string, error)
	Uninstall(ctx context.Context, name string) (string, error)
	UpdateAsync(name string) (string, error)
	SwitchVersionAsync(name, version string) (string, error)
	BatchUninstallAsync(names []string) (string, error)
	BatchUpdateAsync(names []string) (string, error)

	CleanCacheAsync() (string, error)
	RefreshRegistryCache(ctx context.Context, force bool) (int64, error)
	RegistryCacheInfo(ctx context.Context) (count int64, lastUpdate int64, err error)

	SystemInfo(ctx context.Context) (pythonVersion, pipVersion string)
}

type EnvironmentService interface {
	List(ctx context.Context) (domain.EnvironmentSet, error)
	Save(ctx context.Context, env domain.Environment) (domain.Environment, error)
	Delete(ctx context.Context, id string) error
	Switch(ctx context.Context, id string) (domain.Environment, error)
	Discover(ctx context.Context) ([]domain.Environment, error)
	ActiveInterpreter(ctx context.Context) string
}

package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipdock/backend/internal/config"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/core/services"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
)

type fakeRunner struct {
	mu       sync.Mutex
	combined func(argv []string) (string, error)
	runOK    bool
	runCalls [][]string
}

func (f *fakeRunner) Run(_ context.Context, argv []string, _ string, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls = append(f.runCalls, argv)
	return f.runOK
}

func (f *fakeRunner) RunCombined(_ context.Context, argv []string) (string, error) {
	if f.combined == nil {
		return "", nil
	}
	return f.combined(argv)
}

type fakeRegistry struct {
	lookup func(name string) (*domain.RegistryInfo, error)
}

func (f *fakeRegistry) Lookup(_ context.Context, name string) (*domain.RegistryInfo, error) {
	if f.lookup == nil {
		return nil, nil
	}
	return f.lookup(name)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*domain.RegistryEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.RegistryEntry)}
}

func (f *fakeCache) Get(_ context.Context, name string) (*domain.RegistryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[name]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeCache) Put(_ context.Context, entry *domain.RegistryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.entries[entry.Name] = &copied
	return nil
}

func (f *fakeCache) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for name, entry := range f.entries {
		if entry.UpdatedAt.Before(cutoff) {
			delete(f.entries, name)
			n++
		}
	}
	return n, nil
}

func (f *fakeCache) DeleteAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.entries))
	f.entries = make(map[string]*domain.RegistryEntry)
	return n, nil
}

func (f *fakeCache) Count(_ context.Context) (int64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest time.Time
	for _, entry := range f.entries {
		if entry.UpdatedAt.After(latest) {
			latest = entry.UpdatedAt
		}
	}
	return int64(len(f.entries)), latest, nil
}

type fakeEnvironments struct{}

func (fakeEnvironments) List(context.Context) (domain.EnvironmentSet, error) {
	return domain.EnvironmentSet{}, nil
}
func (fakeEnvironments) Save(_ context.Context, env domain.Environment) (domain.Environment, error) {
	return env, nil
}
func (fakeEnvironments) Delete(context.Context, string) error { return nil }
func (fakeEnvironments) Switch(context.Context, string) (domain.Environment, error) {
	return domain.Environment{}, nil
}
func (fakeEnvironments) Discover(context.Context) ([]domain.Environment, error) { return nil, nil }
func (fakeEnvironments) ActiveInterpreter(context.Context) string               { return "python3" }

type dependencyFixture struct {
	service  ports.DependencyService
	store    *services.TaskStore
	runner   *fakeRunner
	registry *fakeRegistry
	cache    *fakeCache
}

func newDependencyFixture(t *testing.T) *dependencyFixture {
	t.Helper()

	f := &dependencyFixture{
		store:    services.NewTaskStore(0),
		runner:   &fakeRunner{runOK: true},
		registry: &fakeRegistry{},
		cache:    newFakeCache(),
	}
	f.service = services.NewDependencyService(services.DependencyServiceConfig{
		Store:        f.store,
		Runner:       f.runner,
		Registry:     f.registry,
		Cache:        f.cache,
		Environments: fakeEnvironments{},
		Logger:       &logger.Logger{SugaredLogger: zap.NewNop().Sugar()},
		Packages: config.PackagesConfig{
			System:      []string{"pip", "setuptools", "wheel"},
			Core:        []string{"numpy", "pandas"},
			AIModel:     []string{"transformers"},
			AppRequired: []string{"flask"},
		},
		CacheTTL: time.Hour,
	})
	return f
}

func (f *dependencyFixture) waitForCompletion(t *testing.T, taskID string) domain.Task {
	t.Helper()
	require.Eventually(t, func() bool {
		task, ok := f.store.Get(taskID)
		return ok && task.Status == domain.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	task, _ := f.store.Get(taskID)
	return task
}

func hasArg(argv []string, want string) bool {
	for _, a := range argv {
		if a == want {
			return true
		}
	}
	return false
}

func TestDependencyServiceListClassifiesAndDedupes(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		if hasArg(argv, "list") {
			return `[
				{"name": "Numpy", "version": "1.24.0"},
				{"name": "numpy", "version": "1.26.0"},
				{"name": "pip", "version": "24.0"}
			]`, nil
		}
		return "", nil
	}
	f.registry.lookup = func(name string) (*domain.RegistryInfo, error) {
		if name == "numpy" {
			return &domain.RegistryInfo{Version: "1.26.0", Summary: "array computing"}, nil
		}
		return nil, nil
	}

	records, err := f.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := make(map[string]domain.PackageRecord)
	for _, r := range records {
		byName[r.Name] = r
	}

	numpy := byName["numpy"]
	assert.Equal(t, "1.26.0", numpy.Version, "higher version wins the dedupe")
	assert.True(t, numpy.IsCore)
	assert.True(t, numpy.IsLatest)
	assert.Equal(t, "array computing", numpy.Description)
	assert.Equal(t, "1.26.0", numpy.LatestVersion)

	pip := byName["pip"]
	assert.True(t, pip.IsSystem)
	assert.True(t, pip.IsLatest, "system packages always count as latest")
	assert.Empty(t, pip.LatestVersion)
}

func TestDependencyServiceListUsesCachedMetadata(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		if hasArg(argv, "list") {
			return `[{"name": "requests", "version": "2.31.0"}]`, nil
		}
		return "", nil
	}
	f.registry.lookup = func(name string) (*domain.RegistryInfo, error) {
		t.Fatalf("registry must not be queried for a fresh cache entry (%s)", name)
		return nil, nil
	}
	require.NoError(t, f.cache.Put(context.Background(), &domain.RegistryEntry{
		Name:      "requests",
		Version:   "2.32.0",
		Summary:   "http for humans",
		UpdatedAt: time.Now(),
	}))

	records, err := f.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2.32.0", records[0].LatestVersion)
	assert.False(t, records[0].IsLatest)
}

func graphFixtureShows() map[string]string {
	return map[string]string{
		"webapp":   "Name: webapp\nVersion: 1.0.0\nSummary: demo web app\nRequires: requests, click; extra == \"cli\"\n",
		"requests": "Name: requests\nVersion: 2.31.0\nSummary: http for humans\nRequires: urllib3, webapp\n",
		"click":    "Name: click\nVersion: 8.1.0\nSummary: cli toolkit\nRequires:\n",
		"urllib3":  "Name: urllib3\nVersion: 2.2.0\nSummary: http client\nRequires:\n",
	}
}

func TestDependencyServiceGraph(t *testing.T) {
	f := newDependencyFixture(t)
	shows := graphFixtureShows()
	f.runner.combined = func(argv []string) (string, error) {
		out, ok := shows[argv[len(argv)-1]]
		if !ok {
			return "", errors.New("exit status 1")
		}
		return out, nil
	}

	graph, err := f.service.Graph(context.Background(), "webapp", 2)
	require.NoError(t, err)

	byID := make(map[string]domain.GraphNode)
	for _, n := range graph.Nodes {
		byID[n.ID] = n
	}
	require.Len(t, graph.Nodes, 4)
	assert.Equal(t, domain.GraphNodeMain, byID["webapp"].Type)
	assert.Equal(t, "1.0.0", byID["webapp"].Version)
	assert.Equal(t, "demo web app", byID["webapp"].Description)
	assert.Equal(t, domain.GraphNodeDirect, byID["requests"].Type)
	assert.Equal(t, domain.GraphNodeOptional, byID["click"].Type, "extras marker makes the dependency optional")
	assert.Equal(t, "2.2.0", byID["urllib3"].Version)

	linkTypes := make(map[string]domain.GraphLinkType)
	for _, l := range graph.Links {
		linkTypes[l.Source+"->"+l.Target] = l.Type
	}
	require.Len(t, graph.Links, 3)
	assert.Equal(t, domain.GraphLinkRequired, linkTypes["webapp->requests"])
	assert.Equal(t, domain.GraphLinkOptional, linkTypes["webapp->click"])
	assert.Equal(t, domain.GraphLinkRequired, linkTypes["requests->urllib3"])

	_, cycled := linkTypes["requests->webapp"]
	assert.False(t, cycled, "a requirement cycle must not re-enter the walk")
}

func TestDependencyServiceGraphDepthLimit(t *testing.T) {
	f := newDependencyFixture(t)
	shows := graphFixtureShows()
	f.runner.combined = func(argv []string) (string, error) {
		out, ok := shows[argv[len(argv)-1]]
		if !ok {
			return "", errors.New("exit status 1")
		}
		return out, nil
	}

	graph, err := f.service.Graph(context.Background(), "webapp", 1)
	require.NoError(t, err)

	assert.Len(t, graph.Nodes, 3, "depth 1 stops at direct dependencies")
	assert.Len(t, graph.Links, 2)
	for _, n := range graph.Nodes {
		assert.NotEqual(t, "urllib3", n.ID)
	}
}

func TestDependencyServiceGraphNotInstalled(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		return "WARNING: Package(s) not found: ghost", errors.New("exit status 1")
	}

	graph, err := f.service.Graph(context.Background(), "ghost", 2)
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, domain.GraphNodeMain, graph.Nodes[0].Type)
	assert.Equal(t, "not installed", graph.Nodes[0].Version)
	assert.Empty(t, graph.Links)
}

func TestDependencyServiceUninstallProtected(t *testing.T) {
	f := newDependencyFixture(t)

	tests := map[string]string{
		"system package":       "pip",
		"app required package": "flask",
		"case insensitive":     "Flask",
	}
	for name, pkg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Uninstall(context.Background(), pkg)
			assert.ErrorIs(t, err, services.ErrPackageProtected)
		})
	}
	assert.Equal(t, 0, f.store.Count(), "rejections must not create tasks")
}

func TestDependencyServiceUninstallNotInstalled(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		if hasArg(argv, "show") {
			return "WARNING: Package(s) not found: ghost", errors.New("exit status 1")
		}
		return "", nil
	}

	_, err := f.service.Uninstall(context.Background(), "ghost")
	assert.ErrorIs(t, err, services.ErrPackageNotInstalled)
}

func TestDependencyServiceUninstallSuccess(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		if hasArg(argv, "show") {
			return "Name: requests\nVersion: 2.31.0\n", nil
		}
		return "Successfully uninstalled requests-2.31.0", nil
	}

	message, err := f.service.Uninstall(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, "successfully uninstalled requests", message)
}

func TestDependencyServiceInstallAsyncValidation(t *testing.T) {
	f := newDependencyFixture(t)

	_, err := f.service.InstallAsync("  ")
	assert.ErrorIs(t, err, services.ErrPackageNameRequired)
	assert.Equal(t, 0, f.store.Count())
}

func TestDependencyServiceInstallAsyncCompletesTask(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.runOK = true

	taskID, err := f.service.InstallAsync("requests")
	require.NoError(t, err)

	task := f.waitForCompletion(t, taskID)
	assert.Equal(t, 100, task.Progress)
	assert.Empty(t, task.Errors)
}

func TestDependencyServiceInstallAsyncRecordsFailure(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.runOK = false

	taskID, err := f.service.InstallAsync("requests")
	require.NoError(t, err)

	task := f.waitForCompletion(t, taskID)
	assert.Equal(t, 100, task.Progress)
	require.Len(t, task.Errors, 1)
	assert.Contains(t, task.Errors[0], "requests")
}

func TestDependencyServiceBatchUninstallAggregatesErrors(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		if hasArg(argv, "show") {
			return "Name: demo\nVersion: 1.0.0\n", nil
		}
		return "Successfully uninstalled", nil
	}

	taskID, err := f.service.BatchUninstallAsync([]string{"pip", "demo"})
	require.NoError(t, err)

	task := f.waitForCompletion(t, taskID)
	assert.Equal(t, 100, task.Progress)
	require.Len(t, task.Errors, 1, "protected name becomes an error entry, not a rejection")
	assert.Contains(t, task.Errors[0], "pip")
}

func TestDependencyServiceSwitchVersionUsesForceReinstall(t *testing.T) {
	f := newDependencyFixture(t)

	taskID, err := f.service.SwitchVersionAsync("numpy", "1.24.0")
	require.NoError(t, err)
	f.waitForCompletion(t, taskID)

	f.runner.mu.Lock()
	defer f.runner.mu.Unlock()
	require.Len(t, f.runner.runCalls, 1)
	argv := f.runner.runCalls[0]
	assert.True(t, hasArg(argv, "numpy==1.24.0"))
	assert.True(t, hasArg(argv, "--force-reinstall"))
}

func TestDependencyServiceCleanCache(t *testing.T) {
	f := newDependencyFixture(t)
	f.runner.combined = func(argv []string) (string, error) {
		require.True(t, hasArg(argv, "cache"))
		require.True(t, hasArg(argv, "purge"))
		return "Files removed: 12", nil
	}

	taskID, err := f.service.CleanCacheAsync()
	require.NoError(t, err)

	task := f.waitForCompletion(t, taskID)
	assert.Equal(t, 100, task.Progress)
	assert.Empty(t, task.Errors)
}

func TestDependencyServiceRefreshRegistryCache(t *testing.T) {
	f := newDependencyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cache.Put(ctx, &domain.RegistryEntry{
		Name:      "stale",
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, f.cache.Put(ctx, &domain.RegistryEntry{
		Name:      "fresh",
		UpdatedAt: time.Now(),
	}))

	evicted, err := f.service.RefreshRegistryCache(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted, "plain refresh drops only expired entries")

	evicted, err = f.service.RefreshRegistryCache(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted, "forced refresh drops everything left")

	count, _, err := f.service.RegistryCacheInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

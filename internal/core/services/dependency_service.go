package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pipdock/backend/internal/config"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
)

type dependencyService struct {
	store        *TaskStore
	runner       ports.CommandRunner
	registry     ports.RegistryClient
	cache        ports.RegistryCacheRepository
	environments ports.EnvironmentService
	logger       *logger.Logger
	cacheTTL     time.Duration

	system      map[string]bool
	core        map[string]bool
	aiModel     map[string]bool
	appRequired map[string]bool
}

type DependencyServiceConfig struct {
	Store        *TaskStore
	Runner       ports.CommandRunner
	Registry     ports.RegistryClient
	Cache        ports.RegistryCacheRepository
	Environments ports.EnvironmentService
	Logger       *logger.Logger
	Packages     config.PackagesConfig
	CacheTTL     time.Duration
}

func NewDependencyService(cfg DependencyServiceConfig) ports.DependencyService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &dependencyService{
		store:        cfg.Store,
		runner:       cfg.Runner,
		registry:     cfg.Registry,
		cache:        cfg.Cache,
		environments: cfg.Environments,
		logger:       cfg.Logger,
		cacheTTL:     ttl,
		system:       lowerSet(cfg.Packages.System),
		core:         lowerSet(cfg.Packages.Core),
		aiModel:      lowerSet(cfg.Packages.AIModel),
		appRequired:  lowerSet(cfg.Packages.AppRequired),
	}
}

func lowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

// pipArgs builds the argv prefix for the active interpreter's pip.
func (s *dependencyService) pipArgs(ctx context.Context, args ...string) []string {
	return append([]string{s.environments.ActiveInterpreter(ctx), "-m", "pip"}, args...)
}

type pipListEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *dependencyService) List(ctx context.Context) ([]domain.PackageRecord, error) {
	out, err := s.runner.RunCombined(ctx, s.pipArgs(ctx, "list", "--format=json"))
	if err != nil {
		s.logger.Errorw("dependency_list_failed", "error", err, "output", out)
		return nil, fmt.Errorf("%w: %v", ErrListFailed, err)
	}

	entries, err := parsePipList(out)
	if err != nil {
		s.logger.Errorw("dependency_list_parse_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrListFailed, err)
	}

	// Dedupe by lowercase name, higher version wins.
	byName := make(map[string]pipListEntry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		if name == "" {
			continue
		}
		existing, seen := byName[name]
		if !seen {
			byName[name] = e
			order = append(order, name)
			continue
		}
		if domain.VersionNewer(e.Version, existing.Version) {
			byName[name] = e
		}
	}

	records := make([]domain.PackageRecord, 0, len(order))
	for _, name := range order {
		records = append(records, s.buildRecord(ctx, name, byName[name].Version, false))
	}
	return records, nil
}

func (s *dependencyService) Get(ctx context.Context, name string, forceRefresh bool) (*domain.PackageRecord, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrPackageNameRequired
	}

	version, err := s.installedVersion(ctx, name)
	if err != nil {
		return nil, err
	}

	record := s.buildRecord(ctx, name, version, forceRefresh)
	return &record, nil
}

// buildRecord classifies one installed package and enriches it with
// registry metadata. System and app-required packages skip the lookup
// and always count as latest.
func (s *dependencyService) buildRecord(ctx context.Context, name, version string, forceRefresh bool) domain.PackageRecord {
	record := domain.PackageRecord{
		Name:          name,
		Version:       version,
		IsSystem:      s.system[name],
		IsCore:        s.core[name],
		IsAIModel:     s.aiModel[name],
		IsAppRequired: s.appRequired[name],
	}

	if record.IsSystem || record.IsAppRequired {
		record.IsLatest = true
		if info := s.lookupCached(ctx, name, forceRefresh); info != nil {
			record.Description = info.Summary
		}
		return record
	}

	info := s.lookupCached(ctx, name, forceRefresh)
	if info == nil || info.Version == "" {
		return record
	}

	record.Description = info.Summary
	record.LatestVersion = info.Version
	record.IsLatest = domain.NormalizeVersion(version) == domain.NormalizeVersion(info.Version) ||
		domain.VersionAtLeast(version, info.Version)
	return record
}

// lookupCached consults the persisted registry cache first; entries
// older than the TTL are treated as absent. A nil return means the
// registry had nothing usable.
func (s *dependencyService) lookupCached(ctx context.Context, name string, force bool) *domain.RegistryInfo {
	if !force {
		entry, err := s.cache.Get(ctx, name)
		if err == nil && entry != nil && time.Since(entry.UpdatedAt) < s.cacheTTL {
			info := &domain.RegistryInfo{Version: entry.Version, Summary: entry.Summary}
			if entry.Releases != "" {
				_ = json.Unmarshal([]byte(entry.Releases), &info.Releases)
			}
			return info
		}
	}

	info, err := s.registry.Lookup(ctx, name)
	if err != nil {
		s.logger.Warnw("registry_lookup_failed", "package", name, "error", err)
		return nil
	}
	if info == nil {
		return nil
	}

	releases, _ := json.Marshal(info.Releases)
	if err := s.cache.Put(ctx, &domain.RegistryEntry{
		Name:      name,
		Version:   info.Version,
		Summary:   info.Summary,
		Releases:  string(releases),
		UpdatedAt: time.Now(),
	}); err != nil {
		s.logger.Warnw("registry_cache_put_failed", "package", name, "error", err)
	}
	return info
}

// pipShowInfo is the parsed output of one pip show invocation.
type pipShowInfo struct {
	Version  string
	Summary  string
	Requires []string
}

// showPackage probes one package via pip show. A non-zero exit means
// not installed. Requires entries are kept raw; extras and environment
// markers stay attached for the optional-dependency check.
func (s *dependencyService) showPackage(ctx context.Context, name string) (*pipShowInfo, error) {
	out, err := s.runner.RunCombined(ctx, s.pipArgs(ctx, "show", name))
	if err != nil {
		return nil, ErrPackageNotInstalled
	}

	info := &pipShowInfo{}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "Version:"):
			info.Version = strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
		case strings.HasPrefix(line, "Summary:"):
			info.Summary = strings.TrimSpace(strings.TrimPrefix(line, "Summary:"))
		case strings.HasPrefix(line, "Requires:"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "Requires:"))
			if rest == "" || rest == "none" {
				continue
			}
			for _, dep := range strings.Split(rest, ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					info.Requires = append(info.Requires, dep)
				}
			}
		}
	}
	return info, nil
}

func (s *dependencyService) installedVersion(ctx context.Context, name string) (string, error) {
	info, err := s.showPackage(ctx, name)
	if err != nil {
		return "", err
	}
	return info.Version, nil
}

// graphMaxDepth caps requirement-tree walks so a hub package cannot
// produce an unbounded response.
const graphMaxDepth = 4

// Graph builds the requirement tree of one installed package as
// node/link data, walking pip show Requires up to maxDepth levels.
// Extras and environment markers mark a dependency optional. A
// not-installed package yields a single marker node rather than an
// error, so the dashboard always has something to draw.
func (s *dependencyService) Graph(ctx context.Context, name string, maxDepth int) (*domain.DependencyGraph, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrPackageNameRequired
	}
	if maxDepth <= 0 {
		maxDepth = 2
	}
	if maxDepth > graphMaxDepth {
		maxDepth = graphMaxDepth
	}

	graph := &domain.DependencyGraph{
		Nodes: []domain.GraphNode{},
		Links: []domain.GraphLink{},
	}

	info, err := s.showPackage(ctx, name)
	if err != nil {
		graph.Nodes = append(graph.Nodes, domain.GraphNode{
			ID:          name,
			Name:        name,
			Version:     "not installed",
			Type:        domain.GraphNodeMain,
			Description: "package is not installed",
		})
		return graph, nil
	}

	graph.Nodes = append(graph.Nodes, domain.GraphNode{
		ID:          name,
		Name:        name,
		Version:     info.Version,
		Type:        domain.GraphNodeMain,
		Description: info.Summary,
	})

	visited := map[string]bool{name: true}
	s.walkRequirements(ctx, name, info.Requires, graph, visited, 1, maxDepth)
	return graph, nil
}

func (s *dependencyService) walkRequirements(ctx context.Context, parent string, requires []string, graph *domain.DependencyGraph, visited map[string]bool, depth, maxDepth int) {
	if depth > maxDepth {
		return
	}

	for _, raw := range requires {
		optional := strings.ContainsAny(raw, "[;")
		depName := requirementBaseName(raw)
		// Already-visited names are skipped, which also breaks cycles.
		if depName == "" || visited[depName] {
			continue
		}
		visited[depName] = true

		node := domain.GraphNode{
			ID:   depName,
			Name: depName,
			Type: domain.GraphNodeDirect,
		}
		linkType := domain.GraphLinkRequired
		if optional {
			node.Type = domain.GraphNodeOptional
			linkType = domain.GraphLinkOptional
		}

		var childRequires []string
		if depInfo, err := s.showPackage(ctx, depName); err == nil {
			node.Version = depInfo.Version
			node.Description = depInfo.Summary
			childRequires = depInfo.Requires
		}

		graph.Nodes = append(graph.Nodes, node)
		graph.Links = append(graph.Links, domain.GraphLink{
			Source: parent,
			Target: depName,
			Type:   linkType,
		})

		s.walkRequirements(ctx, depName, childRequires, graph, visited, depth+1, maxDepth)
	}
}

// requirementBaseName strips extras, environment markers and version
// constraints from a raw requirement token, leaving the package name.
func requirementBaseName(raw string) string {
	name := raw
	for _, sep := range []string{"[", ";", "=", ">", "<", "!", "~", " "} {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
		}
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *dependencyService) isProtected(name string) bool {
	name = strings.ToLower(name)
	return s.system[name] || s.appRequired[name]
}

func (s *dependencyService) InstallAsync(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrPackageNameRequired
	}

	taskID := s.store.Create("install "+name, 1)
	go func() {
		ok := s.runner.Run(context.Background(), s.pipArgs(context.Background(), "install", name), taskID, name)
		s.finish(taskID, ok, fmt.Sprintf("%s: install failed", name))
	}()

	s.logger.Infow("install_started", "package", name, "task_id", taskID)
	return taskID, nil
}

// InstallFileAsync installs an uploaded wheel or requirements file.
// The cleanup callback runs after the task finished, whatever the
// outcome.
func (s *dependencyService) InstallFileAsync(path, label string, cleanup func()) (string, error) {
	if path == "" {
		return "", ErrPackageNameRequired
	}

	args := []string{"install", path}
	if strings.HasSuffix(path, ".txt") {
		args = []string{"install", "-r", path}
	}

	taskID := s.store.Create("install "+label, 1)
	go func() {
		if cleanup != nil {
			defer cleanup()
		}
		ok := s.runner.Run(context.Background(), s.pipArgs(context.Background(), args...), taskID, label)
		s.finish(taskID, ok, fmt.Sprintf("%s: install failed", label))
	}()

	s.logger.Infow("file_install_started", "file", label, "task_id", taskID)
	return taskID, nil
}

// Uninstall is synchronous: protected names are rejected before any
// work happens and no task is created.
func (s *dependencyService) Uninstall(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", ErrPackageNameRequired
	}
	if err := s.uninstallOne(ctx, name); err != nil {
		return "", err
	}
	return "successfully uninstalled " + name, nil
}

func (s *dependencyService) uninstallOne(ctx context.Context, name string) error {
	if s.isProtected(name) {
		s.logger.Warnw("uninstall_rejected_protected", "package", name)
		return ErrPackageProtected
	}
	if _, err := s.installedVersion(ctx, name); err != nil {
		return err
	}

	out, err := s.runner.RunCombined(ctx, s.pipArgs(ctx, "uninstall", "-y", name))
	if err != nil {
		s.logger.Errorw("uninstall_failed", "package", name, "error", err, "output", out)
		return fmt.Errorf("%w: %s", ErrUninstallFailed, strings.TrimSpace(out))
	}

	s.logger.Infow("uninstall_ok", "package", name)
	return nil
}

func (s *dependencyService) UpdateAsync(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrPackageNameRequired
	}

	taskID := s.store.Create("update "+name, 1)
	go func() {
		ctx := context.Background()
		ok := s.runner.Run(ctx, s.pipArgs(ctx, "install", "--upgrade", name), taskID, name)
		s.finish(taskID, ok, fmt.Sprintf("%s: update failed", name))
	}()

	s.logger.Infow("update_started", "package", name, "task_id", taskID)
	return taskID, nil
}

func (s *dependencyService) SwitchVersionAsync(name, version string) (string, error) {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" || version == "" {
		return "", ErrPackageNameRequired
	}

	pinned := fmt.Sprintf("%s==%s", name, version)
	taskID := s.store.Create("switch "+pinned, 1)
	go func() {
		ctx := context.Background()
		ok := s.runner.Run(ctx, s.pipArgs(ctx, "install", pinned, "--force-reinstall"), taskID, pinned)
		s.finish(taskID, ok, fmt.Sprintf("%s: version switch failed", pinned))
	}()

	s.logger.Infow("switch_version_started", "package", name, "version", version, "task_id", taskID)
	return taskID, nil
}

// BatchUninstallAsync iterates the names under one task. Protected
// names become error entries rather than rejecting the whole batch.
func (s *dependencyService) BatchUninstallAsync(names []string) (string, error) {
	if len(names) == 0 {
		return "", ErrPackageNameRequired
	}

	taskID := s.store.Create("uninstall", len(names))
	go func() {
		ctx := context.Background()
		var errs []string
		for i, pkg := range names {
			s.store.Advance(taskID, i+1, fmt.Sprintf("uninstalling %s (%d/%d)", pkg, i+1, len(names)))
			if err := s.uninstallOne(ctx, strings.ToLower(strings.TrimSpace(pkg))); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", pkg, err))
			}
		}
		s.store.Complete(taskID, errs)
	}()

	s.logger.Infow("batch_uninstall_started", "count", len(names), "task_id", taskID)
	return taskID, nil
}

func (s *dependencyService) BatchUpdateAsync(names []string) (string, error) {
	if len(names) == 0 {
		return "", ErrPackageNameRequired
	}

	taskID := s.store.Create("update", len(names))
	go func() {
		ctx := context.Background()
		var errs []string
		for i, pkg := range names {
			s.store.Advance(taskID, i+1, fmt.Sprintf("updating %s (%d/%d)", pkg, i+1, len(names)))
			if ok := s.runner.Run(ctx, s.pipArgs(ctx, "install", "--upgrade", pkg), taskID, pkg); !ok {
				errs = append(errs, fmt.Sprintf("%s: update failed", pkg))
			}
		}
		s.store.Complete(taskID, errs)
	}()

	s.logger.Infow("batch_update_started", "count", len(names), "task_id", taskID)
	return taskID, nil
}

func (s *dependencyService) CleanCacheAsync() (string, error) {
	taskID := s.store.Create("clean cache", 1)
	go func() {
		ctx := context.Background()
		s.store.SetProgress(taskID, 10, "starting cache cleanup")
		s.store.SetProgress(taskID, 50, "purging pip cache")

		out, err := s.runner.RunCombined(ctx, s.pipArgs(ctx, "cache", "purge"))
		if err != nil {
			s.logger.Errorw("cache_purge_failed", "error", err, "output", out)
			s.store.Complete(taskID, []string{"cache purge failed: " + strings.TrimSpace(out)})
			return
		}

		s.store.SetProgress(taskID, 100, "cache cleaned")
		s.store.Complete(taskID, nil)
	}()

	s.logger.Infow("cache_clean_started", "task_id", taskID)
	return taskID, nil
}

// RefreshRegistryCache evicts expired registry entries, or every entry
// when forced. Valid entries are never dropped on a plain refresh.
func (s *dependencyService) RefreshRegistryCache(ctx context.Context, force bool) (int64, error) {
	if force {
		n, err := s.cache.DeleteAll(ctx)
		if err == nil {
			s.logger.Infow("registry_cache_cleared", "evicted", n)
		}
		return n, err
	}

	n, err := s.cache.DeleteOlderThan(ctx, time.Now().Add(-s.cacheTTL))
	if err == nil {
		s.logger.Infow("registry_cache_swept", "evicted", n)
	}
	return n, err
}

func (s *dependencyService) RegistryCacheInfo(ctx context.Context) (int64, int64, error) {
	count, last, err := s.cache.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	var lastUnix int64
	if !last.IsZero() {
		lastUnix = last.Unix()
	}
	return count, lastUnix, nil
}

func (s *dependencyService) SystemInfo(ctx context.Context) (string, string) {
	pythonVersion := "unknown"
	if out, err := s.runner.RunCombined(ctx, []string{s.environments.ActiveInterpreter(ctx), "--version"}); err == nil {
		pythonVersion = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Python "))
	}

	pipVersion := "unknown"
	if out, err := s.runner.RunCombined(ctx, s.pipArgs(ctx, "--version")); err == nil {
		if fields := strings.Fields(out); len(fields) >= 2 {
			pipVersion = fields[1]
		}
	}

	return pythonVersion, pipVersion
}

func (s *dependencyService) finish(taskID string, ok bool, failMsg string) {
	if ok {
		s.store.Complete(taskID, nil)
		return
	}
	s.store.Complete(taskID, []string{failMsg})
}

// parsePipList extracts the JSON array from pip's output, tolerating
// warning lines printed before it.
func parsePipList(out string) ([]pipListEntry, error) {
	start := strings.Index(out, "[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON array in pip list output")
	}
	var entries []pipListEntry
	if err := json.Unmarshal([]byte(out[start:]), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

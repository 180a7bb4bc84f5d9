package services

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
)

const (
	settingKeyEnvironments = "environments"
	defaultEnvironmentID   = "system"
	defaultInterpreter     = "python3"

	probeTimeout = 2 * time.Second
)

// envDocument is the persisted shape of the environment registry, one
// JSON document stored under a single settings key.
type envDocument struct {
	Environments []domain.Environment `json:"environments"`
	Current      string               `json:"current"`
}

type environmentService struct {
	settings ports.SettingRepository
	runner   ports.CommandRunner
	logger   *logger.Logger
	mu       sync.Mutex
}

func NewEnvironmentService(settings ports.SettingRepository, runner ports.CommandRunner, log *logger.Logger) ports.EnvironmentService {
	return &environmentService{settings: settings, runner: runner, logger: log}
}

// load reads the persisted registry, seeding it with the system
// interpreter when nothing was stored yet.
func (s *environmentService) load(ctx context.Context) envDocument {
	doc := envDocument{
		Environments: []domain.Environment{{
			ID:   defaultEnvironmentID,
			Name: "System Python",
			Path: defaultInterpreter,
			Type: domain.EnvironmentTypeSystem,
		}},
		Current: defaultEnvironmentID,
	}

	setting, err := s.settings.Get(ctx, settingKeyEnvironments)
	if err != nil || setting == nil {
		return doc
	}

	var stored envDocument
	if err := json.Unmarshal([]byte(setting.Value), &stored); err != nil {
		s.logger.Warnw("environment_doc_corrupt", "error", err)
		return doc
	}
	if len(stored.Environments) == 0 {
		return doc
	}
	if stored.Current == "" {
		stored.Current = stored.Environments[0].ID
	}
	return stored
}

func (s *environmentService) persist(ctx context.Context, doc envDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.settings.Set(ctx, settingKeyEnvironments, string(raw))
}

func (s *environmentService) List(ctx context.Context) (domain.EnvironmentSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	for i := range doc.Environments {
		if doc.Environments[i].ID != doc.Current || doc.Environments[i].Version != "" {
			continue
		}
		if version, err := s.probe(ctx, doc.Environments[i].Path); err == nil {
			doc.Environments[i].Version = version
		}
	}
	return domain.EnvironmentSet{Environments: doc.Environments, Current: doc.Current}, nil
}

// Save registers or updates one environment. The interpreter must
// resolve on disk and answer a version probe before it is accepted.
func (s *environmentService) Save(ctx context.Context, env domain.Environment) (domain.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env.Path = strings.TrimSpace(env.Path)
	if _, err := resolveInterpreter(env.Path); err != nil {
		return domain.Environment{}, ErrEnvInvalidPath
	}

	version, err := s.probe(ctx, env.Path)
	if err != nil {
		return domain.Environment{}, ErrEnvProbeFailed
	}
	env.Version = version

	if env.ID == "" {
		env.ID = uuid.New().String()
	}
	if env.Name == "" {
		env.Name = filepath.Base(env.Path)
	}
	if env.Type == "" {
		env.Type = domain.EnvironmentTypeCustom
	}

	doc := s.load(ctx)
	replaced := false
	for i := range doc.Environments {
		if doc.Environments[i].ID == env.ID {
			doc.Environments[i] = env
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Environments = append(doc.Environments, env)
	}

	if err := s.persist(ctx, doc); err != nil {
		return domain.Environment{}, err
	}
	s.logger.Infow("environment_saved", "id", env.ID, "path", env.Path)
	return env, nil
}

func (s *environmentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEnvIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	if doc.Current == id {
		return ErrEnvDeleteCurrent
	}

	kept := doc.Environments[:0]
	found := false
	for _, env := range doc.Environments {
		if env.ID == id {
			found = true
			continue
		}
		kept = append(kept, env)
	}
	if !found {
		return ErrEnvNotFound
	}
	doc.Environments = kept

	if err := s.persist(ctx, doc); err != nil {
		return err
	}
	s.logger.Infow("environment_deleted", "id", id)
	return nil
}

// Switch makes the given environment current after re-validating that
// its interpreter still exists.
func (s *environmentService) Switch(ctx context.Context, id string) (domain.Environment, error) {
	if id == "" {
		return domain.Environment{}, ErrEnvIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	for _, env := range doc.Environments {
		if env.ID != id {
			continue
		}
		if _, err := resolveInterpreter(env.Path); err != nil {
			return domain.Environment{}, ErrEnvInvalidPath
		}
		doc.Current = id
		if err := s.persist(ctx, doc); err != nil {
			return domain.Environment{}, err
		}
		s.logger.Infow("environment_switched", "id", id, "path", env.Path)
		return env, nil
	}
	return domain.Environment{}, ErrEnvNotFound
}

// Discover scans the usual interpreter locations and returns every
// candidate that answers a version probe. Nothing is persisted; the
// caller decides what to register.
func (s *environmentService) Discover(ctx context.Context) ([]domain.Environment, error) {
	home, _ := os.UserHomeDir()
	patterns := []string{
		"/usr/bin/python3",
		"/usr/local/bin/python3",
		filepath.Join(home, ".virtualenvs", "*", "bin", "python"),
		filepath.Join(home, "venv", "bin", "python"),
		filepath.Join(home, ".venv", "bin", "python"),
		filepath.Join(home, "miniconda3", "envs", "*", "bin", "python"),
		filepath.Join(home, "anaconda3", "envs", "*", "bin", "python"),
	}

	seen := make(map[string]bool)
	var found []domain.Environment
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			version, err := s.probe(ctx, path)
			if err != nil {
				continue
			}
			found = append(found, domain.Environment{
				ID:      uuid.New().String(),
				Name:    environmentName(path),
				Path:    path,
				Type:    environmentType(path),
				Version: version,
			})
		}
	}
	return found, nil
}

// ActiveInterpreter resolves the current environment's interpreter
// path, falling back to the system default.
func (s *environmentService) ActiveInterpreter(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	for _, env := range doc.Environments {
		if env.ID == doc.Current && env.Path != "" {
			return env.Path
		}
	}
	return defaultInterpreter
}

func (s *environmentService) probe(ctx context.Context, path string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := s.runner.RunCombined(probeCtx, []string{path, "--version"})
	if err != nil {
		return "", ErrEnvProbeFailed
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Python ")), nil
}

// resolveInterpreter accepts either an absolute path or a bare command
// name resolvable on PATH.
func resolveInterpreter(path string) (string, error) {
	if path == "" {
		return "", os.ErrNotExist
	}
	if strings.ContainsRune(path, os.PathSeparator) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

func environmentName(path string) string {
	// ~/.virtualenvs/<name>/bin/python -> <name>
	dir := filepath.Dir(filepath.Dir(path))
	if base := filepath.Base(dir); base != "/" && base != "." {
		return base
	}
	return filepath.Base(path)
}

func environmentType(path string) domain.EnvironmentType {
	switch {
	case strings.Contains(path, "conda"):
		return domain.EnvironmentTypeConda
	case strings.Contains(path, "virtualenv") || strings.Contains(path, "venv"):
		return domain.EnvironmentTypeVirtualenv
	default:
		return domain.EnvironmentTypeSystem
	}
}

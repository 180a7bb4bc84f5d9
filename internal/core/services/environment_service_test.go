package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/core/services"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (f *fakeSettings) Get(_ context.Context, key string) (*domain.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return &domain.Setting{Key: key, Value: value}, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettings) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func newEnvironmentFixture(t *testing.T) (ports.EnvironmentService, *fakeSettings) {
	t.Helper()
	settings := newFakeSettings()
	runner := &fakeRunner{
		combined: func(argv []string) (string, error) {
			return "Python 3.11.2", nil
		},
	}
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	return services.NewEnvironmentService(settings, runner, log), settings
}

func TestEnvironmentServiceDefaults(t *testing.T) {
	service, _ := newEnvironmentFixture(t)
	ctx := context.Background()

	set, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, set.Environments, 1)
	assert.Equal(t, "system", set.Current)
	assert.Equal(t, domain.EnvironmentTypeSystem, set.Environments[0].Type)

	assert.Equal(t, "python3", service.ActiveInterpreter(ctx))
}

func TestEnvironmentServiceSaveAndSwitch(t *testing.T) {
	service, _ := newEnvironmentFixture(t)
	ctx := context.Background()

	// "sh" resolves on PATH, so it stands in for an interpreter here.
	env, err := service.Save(ctx, domain.Environment{Name: "scratch", Path: "sh"})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "3.11.2", env.Version)
	assert.Equal(t, domain.EnvironmentTypeCustom, env.Type)

	set, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, set.Environments, 2)

	switched, err := service.Switch(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, env.ID, switched.ID)
	assert.Equal(t, "sh", service.ActiveInterpreter(ctx))
}

func TestEnvironmentServiceSaveInvalidPath(t *testing.T) {
	service, _ := newEnvironmentFixture(t)

	_, err := service.Save(context.Background(), domain.Environment{
		Path: "/nonexistent/pipdock-test-python",
	})
	assert.ErrorIs(t, err, services.ErrEnvInvalidPath)
}

func TestEnvironmentServiceDelete(t *testing.T) {
	service, _ := newEnvironmentFixture(t)
	ctx := context.Background()

	env, err := service.Save(ctx, domain.Environment{Name: "scratch", Path: "sh"})
	require.NoError(t, err)

	t.Run("cannot delete the active environment", func(t *testing.T) {
		err := service.Delete(ctx, "system")
		assert.ErrorIs(t, err, services.ErrEnvDeleteCurrent)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := service.Delete(ctx, "no-such-env")
		assert.ErrorIs(t, err, services.ErrEnvNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		err := service.Delete(ctx, "")
		assert.ErrorIs(t, err, services.ErrEnvIDRequired)
	})

	t.Run("delete inactive environment", func(t *testing.T) {
		require.NoError(t, service.Delete(ctx, env.ID))
		set, err := service.List(ctx)
		require.NoError(t, err)
		assert.Len(t, set.Environments, 1)
	})

	t.Run("switch to deleted environment fails", func(t *testing.T) {
		_, err := service.Switch(ctx, env.ID)
		assert.ErrorIs(t, err, services.ErrEnvNotFound)
	})
}

package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/config"
	"github.com/pipdock/backend/internal/core/services"
	"github.com/pipdock/backend/internal/infrastructure/db"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/infrastructure/registry"
	"github.com/pipdock/backend/internal/transport/http/handlers"
	httpmw "github.com/pipdock/backend/internal/transport/http/middleware"
	"gorm.io/gorm"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	// Repositories
	settingRepo := db.NewSettingRepository(cfg.DB, cfg.Logger)
	registryCacheRepo := db.NewRegistryCacheRepository(cfg.DB, cfg.Logger)

	// Services
	taskStore := services.NewTaskStore(cfg.Config.Tasks.ExpireAfter)
	taskRunner := services.NewTaskRunner(taskStore, cfg.Logger)
	registryClient := registry.NewPyPIClient(cfg.Config.Registry.BaseURL, cfg.Config.Registry.Timeout, cfg.Logger)

	environmentService := services.NewEnvironmentService(settingRepo, taskRunner, cfg.Logger)

	dependencyService := services.NewDependencyService(services.DependencyServiceConfig{
		Store:        taskStore,
		Runner:       taskRunner,
		Registry:     registryClient,
		Cache:        registryCacheRepo,
		Environments: environmentService,
		Logger:       cfg.Logger,
		Packages:     cfg.Config.Packages,
		CacheTTL:     cfg.Config.Registry.CacheTTL,
	})

	// Handlers
	dependencyHandler := handlers.NewDependencyHandler(dependencyService, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(taskStore, cfg.Logger)
	cacheHandler := handlers.NewCacheHandler(dependencyService, cfg.Logger)
	settingHandler := handlers.NewSettingHandler(settingRepo, cfg.Logger)
	systemHandler := handlers.NewSystemHandler(dependencyService, cfg.Config.Packages, cfg.Logger)
	environmentHandler := handlers.NewEnvironmentHandler(environmentService, cfg.Logger)

	// Websocket upgrade gate
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/tasks/:id", websocket.New(taskHandler.Stream))

	api := app.Group("/api/v1", httpmw.AdminAuth(cfg.Config))

	// Dependency routes
	deps := api.Group("/dependencies")
	deps.Get("/", dependencyHandler.List)
	deps.Post("/install", dependencyHandler.Install)
	deps.Post("/uninstall", dependencyHandler.Uninstall)
	deps.Post("/update", dependencyHandler.Update)
	deps.Post("/switch-version", dependencyHandler.SwitchVersion)
	deps.Post("/batch-uninstall", dependencyHandler.BatchUninstall)
	deps.Post("/update-selected", dependencyHandler.BatchUpdate)
	deps.Post("/install-whl", dependencyHandler.InstallWhl)
	deps.Post("/install-requirements", dependencyHandler.InstallRequirements)
	deps.Get("/:name/graph", dependencyHandler.Graph)
	deps.Get("/:name", dependencyHandler.Get)

	// Task routes
	api.Get("/tasks/:id", taskHandler.GetStatus)

	// Cache routes
	cache := api.Group("/cache")
	cache.Post("/clean", cacheHandler.Clean)
	cache.Post("/refresh", cacheHandler.Refresh)
	cache.Get("/info", cacheHandler.Info)

	// Settings + system routes
	api.Get("/settings", settingHandler.GetSettings)
	api.Post("/settings", settingHandler.UpdateSettings)
	api.Get("/system-info", systemHandler.GetSystemInfo)
	api.Get("/categories", systemHandler.GetCategories)

	// Environment routes
	envs := api.Group("/environments")
	envs.Get("/", environmentHandler.List)
	envs.Post("/", environmentHandler.Save)
	envs.Delete("/:id", environmentHandler.Delete)
	envs.Post("/switch", environmentHandler.Switch)
	envs.Post("/discover", environmentHandler.Discover)
}

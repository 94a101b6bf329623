package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cozzyhub/config"
	"cozzyhub/handlers"
	"cozzyhub/mailer"
	"cozzyhub/middleware"
	"cozzyhub/repository"
	"cozzyhub/services"
	"cozzyhub/utils"
	"cozzyhub/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	memoryMode bool
)

var rootCmd = &cobra.Command{
	Use:   "cozzyhub",
	Short: "CozzyHub storefront and back-office API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Log.ConfigureZerolog()
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Example: `  # Full service against Postgres:
  cozzyhub serve

  # Accounts and affiliate API only, state kept in memory:
  cozzyhub serve --memory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
		db, err := repository.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := repository.Migrate(db); err != nil {
			return err
		}
		log.Info().Msg("✅ database migrated")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&memoryMode, "memory", false, "keep accounts and affiliates in memory (no database, no storefront)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New(fiber.Config{
		AppName:   "CozzyHub",
		BodyLimit: 20 * 1024 * 1024, // admin image uploads
	})
	app.Use(requestid.New())
	app.Use(fiberrecover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Import-Key",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	rl, err := middleware.NewLimiter(ctx, cfg.RateLimit, cfg.RedisURL)
	if err != nil {
		return err
	}
	limit := middleware.RateLimit(rl)
	mail := mailer.New(cfg.SMTP)

	if memoryMode {
		if cfg.JWTSecret == "" {
			log.Warn().Msg("⚠️  JWT_SECRET not set, sessions will not survive a restart")
			cfg.JWTSecret = uuid.NewString()
		}
		store := repository.NewMemoryStore()
		auth := services.NewAuthService(store, mail, authConfig())
		affiliates := services.NewAffiliateService(store, store, cfg.SiteURL)

		handlers.SetupAuthRoutes(app, auth, limit)
		handlers.SetupAffiliateRoutes(app, auth, affiliates, limit)

		workers.NewAffiliateStatsWorker(affiliates).Start(ctx)
		log.Warn().Msg("⚠️  running in memory mode: storefront, admin and import routes are disabled")
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
		db, err := repository.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := repository.Migrate(db); err != nil {
			return err
		}

		objects, err := objectStore(ctx, app)
		if err != nil {
			return err
		}

		store := repository.NewStore(db)
		auth := services.NewAuthService(store, mail, authConfig())
		affiliates := services.NewAffiliateService(store, store, cfg.SiteURL)
		catalog := services.NewCatalogService(db)
		cart := services.NewCartService(db)
		checkout := services.NewCheckoutService(db, affiliates, mail)
		admin := services.NewAdminService(db, objects, affiliates, cfg.LowStockThreshold)
		imports := services.NewImportService(db, objects)

		handlers.SetupAuthRoutes(app, auth, limit)
		handlers.SetupAffiliateRoutes(app, auth, affiliates, limit)
		handlers.SetupImportRoutes(app, imports, cfg.ImportAPIKey)
		handlers.SetupStoreRoutes(app, auth, catalog, cart, checkout)
		handlers.SetupAdminRoutes(app, auth, admin)

		sched, err := services.StartScheduler(db, cart, cfg.LowStockThreshold)
		if err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				log.Warn().Err(err).Msg("[Scheduler] shutdown failed")
			}
		}()

		workers.NewAffiliateStatsWorker(affiliates).Start(ctx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	log.Info().Str("port", cfg.Port).Bool("memory", memoryMode).Msg("✅ Server running")
	log.Info().Strs("origins", cfg.AllowedOrigins).Msg("✅ CORS configured")

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func authConfig() services.AuthConfig {
	return services.AuthConfig{
		SiteURL:   cfg.SiteURL,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
	}
}

// objectStore returns R2 when configured, otherwise a local directory served
// under /uploads.
func objectStore(ctx context.Context, app *fiber.App) (utils.ObjectStore, error) {
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2(ctx, cfg.R2)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize R2 client: %w", err)
		}
		return r2, nil
	}

	local := &utils.LocalStore{Dir: "./uploads", BaseURL: "http://localhost:" + cfg.Port + "/uploads"}
	if err := local.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to ensure upload dir: %w", err)
	}
	app.Static("/uploads", local.Dir)
	log.Warn().Msg("⚠️  R2 not configured, product images are stored in ./uploads")
	return local, nil
}

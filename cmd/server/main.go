// main.go
//
// User defined spatial tables over a relational database
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersdb.
// layersdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/rs/zerolog"

	"github.com/localnerve/layersdb/internal/config"
	"github.com/localnerve/layersdb/internal/database"
	"github.com/localnerve/layersdb/internal/event"
	"github.com/localnerve/layersdb/internal/handlers"
	"github.com/localnerve/layersdb/internal/services"

	_ "github.com/localnerve/layersdb/docs/api" // Swagger docs
)

// @title LayersDB API
// @version 1.0.0
// @description User defined spatial tables over a relational database
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/layersdb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	zlog := cfg.Logger(nil)
	if err := cfg.ValidateAuthorizer(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Connect(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	events := &event.Manager{}
	events.ListenForTableCreated(func(_ context.Context, t event.Table) {
		zlog.Info().Uint64("table", t.TableID).Str("owner", t.OwnerID).Str("uri", t.Locators.ResourceURI).Msg("event: table created")
	})
	events.ListenForTableDeleted(func(_ context.Context, t event.Table) {
		zlog.Info().Uint64("table", t.TableID).Str("owner", t.OwnerID).Msg("event: table deleted")
	})

	svc := services.New(db,
		services.WithLogger(zlog),
		services.WithEvents(events),
		services.WithNameScope(cfg.NameScope),
		services.WithDefaultSRID(cfg.DefaultSRID),
		services.WithFilesDir(cfg.FilesDir),
	)
	resolver := services.NewAuthorizerResolver(cfg, fmt.Sprintf("http://localhost:%s", cfg.Port))

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    64 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("layersdb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(c.UserContext(), cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	handlers.Register(app.Group("/api"), svc, resolver)
	app.Use(handlers.NotFound)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zlog.Info().Msg("gracefully shutting down")
		_ = app.Shutdown()
	}()

	zlog.Info().Str("port", cfg.Port).Msg("starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal().Err(err).Msg("failed to start server")
	}
	zlog.Info().Msg("server stopped")
}

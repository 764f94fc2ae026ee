// main.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/database"
	"github.com/localnerve/bizflow/internal/handlers"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/realtime"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	_ "github.com/localnerve/bizflow/docs/api" // Swagger docs
)

// @title Bizflow API
// @version 1.0.0
// @description Application lifecycle, payment verification and notifications for immigration and company formation services
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/bizflow
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	log := logging.WithComponent("server")

	// Migrate with the privileged pool, then serve with the app pool
	adminDB, err := database.ConnectAdmin(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect admin pool")
	}
	if err := database.AutoMigrate(adminDB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	if !cfg.IsSQLite() {
		_ = database.Close(adminDB)
	}

	db := adminDB
	if !cfg.IsSQLite() {
		if db, err = database.Connect(cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to connect app pool")
		}
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Realtime fan-out: Redis when configured, the local hub otherwise
	hub := realtime.NewHub(logging.WithComponent("realtime"))
	var emitter realtime.Emitter = hub
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()

		emitter = realtime.NewRedisEmitter(rdb, realtime.DefaultChannel)
		relay := realtime.NewRelay(rdb, realtime.DefaultChannel, hub, logging.WithComponent("relay"))
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("realtime relay stopped")
			}
		}()
	}

	var (
		email services.EmailSender
		sms   services.SMSSender
	)
	if cfg.MailEnabled() {
		if email, sms, err = services.NewAWSSenders(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SMSEnabled); err != nil {
			log.Fatal().Err(err).Msg("failed to configure AWS senders")
		}
	}

	outbox := services.NewOutbox(cfg.OutboxSize, emitter, email, sms, logging.WithComponent("outbox"))
	outbox.Start()

	media, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to prepare media storage")
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	timeline := services.NewTimeline(db)
	dispatcher := services.NewDispatcher(db, outbox, logging.WithComponent("notifications"))
	apps := services.NewApplicationService(db, timeline, dispatcher, media, logging.WithComponent("applications"))
	payments := services.NewPaymentService(db, timeline, dispatcher, media, logging.WithComponent("payments"))
	users := services.NewUserService(db, tokens, logging.WithComponent("users"))

	// Overdue payment reminders
	scheduler := cron.New()
	reminders := services.NewReminders(db, dispatcher, logging.WithComponent("reminders"))
	if _, err := reminders.Schedule(scheduler, cfg.ReminderSchedule); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReminderSchedule).Msg("invalid reminder schedule")
	}
	scheduler.Start()

	app := handlers.NewApp(cfg.IsProduction())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(cors.New())

	prometheus := fiberprometheus.New("bizflow")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	app.Get("/swagger/*", swagger.HandlerDefault)
	if cfg.StorageDriver != config.StorageS3 {
		app.Static(storage.UploadsPath, cfg.UploadDir)
	}

	handlers.Register(app, handlers.Deps{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		Tokens:     tokens,
		Users:      users,
		Apps:       apps,
		Payments:   payments,
		Dispatcher: dispatcher,
	})
	app.Use(handlers.NotFound)

	// The websocket endpoint runs on its own listener
	socket := realtime.NewServer(hub, services.SocketCallbacks(tokens, apps), nil, logging.WithComponent("websocket")).
		WithEmitter(emitter)
	mux := http.NewServeMux()
	mux.Handle("/ws", socket)
	wsServer := &http.Server{
		Addr:              ":" + cfg.RealtimePort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.RealtimePort).Msg("realtime listening")
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("realtime server failed")
		}
	}()

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = app.ShutdownWithContext(shutdownCtx)
	if err := outbox.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("outbox did not drain")
	}
	log.Info().Msg("server stopped")
}

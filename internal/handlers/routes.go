// routes.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/middleware"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// bodyLimit allows several document uploads per request
const bodyLimit = 25 * 1024 * 1024

// Deps are the services the HTTP surface is built on
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Tokens     *services.TokenService
	Users      *services.UserService
	Apps       *services.ApplicationService
	Payments   *services.PaymentService
	Dispatcher *services.Dispatcher
}

// NewApp creates a fiber app with the envelope error handler and panic recovery
func NewApp(production bool) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(production),
		BodyLimit:    bodyLimit,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	return app
}

// Register mounts /health and every /api route
func Register(app *fiber.App, d Deps) {
	health := &HealthHandler{Config: d.Config, DB: d.DB, Redis: d.Redis}
	app.Get("/health", health.Check)

	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	authn := middleware.Authenticate(d.Config, d.Tokens, d.DB)

	authHandler := &AuthHandler{Users: d.Users}
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", authn, authHandler.Me)

	userHandler := &UserHandler{Users: d.Users}
	users := api.Group("/users", authn)
	users.Get("/", middleware.AuthAdmin(), userHandler.List)
	users.Post("/", middleware.AuthAdmin(), userHandler.Create)
	users.Patch("/me", userHandler.UpdateMe)
	users.Patch("/me/password", userHandler.ChangePassword)
	users.Delete("/:id", middleware.AuthAdmin(), userHandler.Delete)

	appHandler := &ApplicationHandler{Apps: d.Apps}
	apps := api.Group("/applications", authn)
	apps.Post("/", appHandler.Create)
	apps.Get("/", appHandler.List)
	apps.Get("/:id", appHandler.Get)
	apps.Get("/:id/timeline", appHandler.Timeline)
	apps.Patch("/:id/review", middleware.AuthStaff(), appHandler.Review)
	apps.Post("/:id/payment", appHandler.MakePayment)
	apps.Patch("/:id/assign", middleware.AuthStaff(), appHandler.Assign)
	apps.Delete("/:id", middleware.AuthStaff(), appHandler.Delete)

	api.Patch("/status/:id/update", authn, middleware.AuthStaff(), appHandler.UpdateStatus)
	api.Patch("/employees/applications/:id", authn, middleware.AuthStaff(), appHandler.EmployeeUpdate)

	paymentHandler := &PaymentHandler{Payments: d.Payments}
	payments := api.Group("/payments", authn)
	payments.Get("/", middleware.AuthAdmin(), paymentHandler.List)
	payments.Get("/:id", paymentHandler.Get)
	payments.Post("/:id/submit", paymentHandler.Submit)
	payments.Post("/:id/installments/:index/submit", paymentHandler.SubmitInstallment)
	payments.Patch("/:id/verify", middleware.AuthAdmin(), paymentHandler.Verify)
	payments.Patch("/:id/installments/:index/verify", middleware.AuthAdmin(), paymentHandler.VerifyInstallment)

	notificationHandler := &NotificationHandler{Dispatcher: d.Dispatcher}
	notifications := api.Group("/notifications", authn)
	notifications.Patch("/read-all", notificationHandler.MarkAllRead)
	notifications.Get("/:userId", notificationHandler.List)
	notifications.Patch("/:id/read", notificationHandler.MarkRead)
	notifications.Delete("/:id", notificationHandler.Delete)
}

// auth.go
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

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/types"
	"gorm.io/gorm"
)

const identityKey = "identity"

// Authenticate resolves the caller from a bearer token, or from an Authorizer
// cookie_session when Authorizer is configured, and stores it in locals
func Authenticate(cfg *config.Config, tokens *services.TokenService, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return types.Unauthorized("Authorization header must be a bearer token")
			}
			id, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				return types.Unauthorized("Invalid or expired token")
			}
			c.Locals(identityKey, id)
			return c.Next()
		}

		if cfg != nil && cfg.AuthorizerEnabled() {
			if session := c.Cookies("cookie_session"); session != "" {
				return authorizeSession(c, cfg, db, session)
			}
		}

		return types.Unauthorized("Authentication required")
	}
}

// authorizeSession validates an Authorizer cookie, initializing the client on first use
func authorizeSession(c *fiber.Ctx, cfg *config.Config, db *gorm.DB, session string) error {
	if !services.IsAuthorizerInitialized() {
		if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
			log := logging.WithComponent("auth")
			log.Error().Err(err).Msg("authorizer unavailable")
			return types.Unauthorized("Session validation unavailable")
		}
	}

	id, err := services.ValidateSession(db, session)
	if err != nil {
		log := logging.WithComponent("auth")
		log.Debug().Err(err).Msg("session rejected")
		return types.Unauthorized("Invalid session")
	}
	c.Locals(identityKey, id)
	return c.Next()
}

// RequireRoles rejects callers whose role is not listed
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return types.Unauthorized("Authentication required")
		}
		for _, r := range roles {
			if id.Role == r {
				return c.Next()
			}
		}
		return types.Forbidden("Insufficient role for this action")
	}
}

// AuthAdmin allows admins only
func AuthAdmin() fiber.Handler {
	return RequireRoles(models.RoleAdmin)
}

// AuthStaff allows employees and admins
func AuthStaff() fiber.Handler {
	return RequireRoles(models.RoleEmployee, models.RoleAdmin)
}

// CurrentIdentity returns the authenticated caller
func CurrentIdentity(c *fiber.Ctx) (services.Identity, bool) {
	id, ok := c.Locals(identityKey).(services.Identity)
	return id, ok
}

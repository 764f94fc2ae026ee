// Package testutil holds fixtures shared by package tests and the local container stack.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every seeded user
const Password = "password123"

// NewDB opens a private in-memory sqlite database with every table migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps the schema alive across pool reconnects
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser inserts a user with the shared password hashed at minimum cost
func CreateUser(t *testing.T, db *gorm.DB, role models.Role, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         string(role) + " " + email,
		Role:         role,
		Settings:     datatypes.NewJSONType(models.UserSettings{EmailNotifications: true, Language: "en"}),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Cast is the usual set of users for lifecycle tests
type Cast struct {
	Client   *models.User
	Other    *models.User
	Employee *models.User
	Admin    *models.User
}

// SeedCast creates two clients, an employee and an admin
func SeedCast(t *testing.T, db *gorm.DB) Cast {
	t.Helper()
	return Cast{
		Client:   CreateUser(t, db, models.RoleClient, "client@example.com"),
		Other:    CreateUser(t, db, models.RoleClient, "other@example.com"),
		Employee: CreateUser(t, db, models.RoleEmployee, "employee@example.com"),
		Admin:    CreateUser(t, db, models.RoleAdmin, "admin@example.com"),
	}
}

// ParseJSON decodes a response body into a generic map
func ParseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(body, &out), "body: %s", string(body))
	return out
}

// AssertStatus fails the test with the response body when the status differs
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

// Data returns the data object of a success envelope
func Data(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "envelope has no data object: %v", envelope)
	return data
}

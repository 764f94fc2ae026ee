package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/utils"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// Identity is the authenticated caller attached to each request
type Identity struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// IsStaff reports whether the caller is an employee or admin
func (i Identity) IsStaff() bool {
	return i.Role.IsStaff()
}

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Claims are the bearer token claims; the subject is the user id
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user
func (s *TokenService) Issue(user *models.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    "bizflow",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify parses and validates a token
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Identity{}, ErrInvalidToken
	}

	return Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

var (
	authClient *authorizer.AuthorizerClient
	authOnce   sync.Once
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client (singleton pattern)
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	var initErr error

	authOnce.Do(func() {
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		log := logging.WithComponent("auth")
		log.Info().
			Str("authorizer_url", cfg.AuthzURL).
			Str("client_id", cfg.AuthzClientID).
			Str("redirect_url", redirectURL).
			Msg("initializing authorizer")

		var err error
		authClient, err = authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
	})

	return initErr
}

// ValidateSession validates an Authorizer session cookie and maps it onto a local account by email
func ValidateSession(db *gorm.DB, cookie string) (Identity, error) {
	if authClient == nil {
		return Identity{}, fmt.Errorf("authorizer client not initialized")
	}

	res, err := authClient.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid || res.User == nil {
		return Identity{}, fmt.Errorf("session is not valid")
	}

	raw, err := json.Marshal(res.User)
	if err != nil {
		return Identity{}, err
	}
	email, role := sessionUser(raw)
	if email == "" {
		return Identity{}, fmt.Errorf("session user has no email")
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return Identity{}, fmt.Errorf("no local account for session user: %w", err)
	}

	// The local account is authoritative unless Authorizer grants more
	if role == models.RoleAdmin || (role == models.RoleEmployee && user.Role == models.RoleClient) {
		user.Role = role
	}
	return Identity{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// sessionUser reads the email and strongest role from an Authorizer user document
func sessionUser(raw []byte) (string, models.Role) {
	doc := gjson.ParseBytes(raw)
	email := strings.ToLower(strings.TrimSpace(doc.Get("email").String()))

	role := models.RoleClient
	for _, r := range doc.Get("roles").Array() {
		switch models.Role(r.String()) {
		case models.RoleAdmin:
			return email, models.RoleAdmin
		case models.RoleEmployee:
			role = models.RoleEmployee
		}
	}
	return email, role
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
)

// ErrInvalidCredentials is returned when no user matches the login
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService logs users in against the remote users list
type AuthService struct {
	remote        RemoteStore
	sessions      SessionStore
	adminUsername string
}

func NewAuthService(remote RemoteStore, sessions SessionStore, adminUsername string) *AuthService {
	return &AuthService{remote: remote, sessions: sessions, adminUsername: adminUsername}
}

// Login matches usernames case-insensitively and passwords exactly, then
// opens a session for the matched user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, models.AuthUser, error) {
	users, err := s.remote.FetchUsers(ctx)
	if err != nil {
		if apperr.KindOf(err) != apperr.ParseFailure {
			return "", models.AuthUser{}, err
		}
		logging.Errorf("Treating unrecognised users response as empty: %v", err)
		users = nil
	}

	username = strings.TrimSpace(username)
	for _, u := range users {
		if !strings.EqualFold(u.Username, username) || u.Password != password {
			continue
		}

		user := models.AuthUser{ID: u.ID, Username: u.Username, Role: s.roleOf(u)}
		token, err := s.sessions.Create(ctx, user)
		if err != nil {
			return "", models.AuthUser{}, err
		}
		logging.Infof("User logged in - username: %s, role: %s", user.Username, user.Role)
		return token, user, nil
	}

	logging.Warnf("Login failed - username: %s", username)
	return "", models.AuthUser{}, ErrInvalidCredentials
}

func (s *AuthService) roleOf(u models.User) string {
	if strings.EqualFold(strings.TrimSpace(u.Role), models.RoleAdmin) {
		return models.RoleAdmin
	}
	if s.adminUsername != "" && strings.EqualFold(u.Username, s.adminUsername) {
		return models.RoleAdmin
	}
	return models.RoleSeller
}

// Authenticate resolves a session token
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.AuthUser, bool, error) {
	if token == "" {
		return models.AuthUser{}, false, nil
	}
	return s.sessions.Get(ctx, token)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

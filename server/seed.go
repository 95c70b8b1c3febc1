package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jrsteele09/dashboard-session/internal/errors"
	"github.com/jrsteele09/dashboard-session/users"
)

// SeedUser is a demo account created at startup. An empty Password gets a
// generated one.
type SeedUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Seed creates the given users unless they already exist. It returns the
// passwords it used, keyed by email, for accounts created by this call.
func (s *Server) Seed(seed ...SeedUser) (map[string]string, error) {
	created := make(map[string]string)
	for _, su := range seed {
		if _, err := s.users.GetByEmail(su.Email); err == nil {
			s.log.Debug().Str("email", su.Email).Msg("seed user already exists")
			continue
		} else if !errors.Is(err, errors.ErrUserNotFound) {
			return nil, fmt.Errorf("[Server Seed] failed to look up %s: %w", su.Email, err)
		}

		password := su.Password
		if password == "" {
			generated, err := generatePassword()
			if err != nil {
				return nil, fmt.Errorf("[Server Seed] failed to generate password: %w", err)
			}
			password = generated
		} else if err := users.ValidatePasswordStrength(password); err != nil {
			return nil, fmt.Errorf("[Server Seed] weak password for %s: %w", su.Email, err)
		}

		passwordHash, err := users.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("[Server Seed] failed to hash password: %w", err)
		}

		user := &users.User{
			Email:        su.Email,
			Username:     usernameFromEmail(su.Email),
			PasswordHash: passwordHash,
			FirstName:    su.FirstName,
			LastName:     su.LastName,
			DateJoined:   time.Now().UTC(),
		}
		if err := s.users.Upsert(user); err != nil {
			return nil, fmt.Errorf("[Server Seed] failed to create %s: %w", su.Email, err)
		}
		created[user.Email] = password
	}

	if s.env == "DEV" {
		for email, password := range created {
			s.log.Info().Msgf("👤 Seeded user %s / %s", email, password)
		}
	}
	return created, nil
}

// generatePassword returns a random password that passes ValidatePasswordStrength.
func generatePassword() (string, error) {
	passwordBytes := make([]byte, 12)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", err
	}
	return "Aa1" + base64.RawURLEncoding.EncodeToString(passwordBytes), nil
}

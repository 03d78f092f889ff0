package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Session holds the auth token and the logged-in user. The token is mirrored into
// the API client and the token store.
type Session struct {
	api    *APIClient
	store  TokenStore
	logger *slog.Logger
	tracer trace.Tracer

	user *User
}

func NewSession(api *APIClient, store TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		api:    api,
		store:  store,
		logger: WithOperation(logger, "session"),
		tracer: otel.Tracer(tracerName),
	}
}

func (s *Session) Token() string {
	return s.api.Token()
}

func (s *Session) User() *User {
	return s.user
}

func (s *Session) LoggedIn() bool {
	return s.api.Token() != ""
}

// Restore loads a persisted token, if any.
func (s *Session) Restore() error {
	token, err := s.store.LoadToken()
	if err != nil {
		return err
	}
	if token != "" {
		s.api.SetToken(token)
		s.logger.Debug("restored session", slog.String("token", SanitizeToken(token)))
	}
	return nil
}

// Login authenticates userID. On any failure the current token and user are left
// untouched.
func (s *Session) Login(ctx context.Context, userID, password string) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return nil, &ValidationError{"login", "user id and password are required"}
	}

	ctx, span := s.tracer.Start(ctx, "Login")
	defer span.End()

	res, err := s.api.Login(ctx, userID, password)
	if err != nil {
		span.RecordError(err)
		s.logger.Info("login failed", Err(err))
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := s.store.SaveToken(res.Token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	s.api.SetToken(res.Token)
	user := res.User
	s.user = &user

	s.logger.Info("logged in", slog.String("user", user.ID), slog.String("token", SanitizeToken(res.Token)))
	return s.user, nil
}

// Logout tells the server (best effort) and clears the token everywhere.
func (s *Session) Logout(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "Logout")
	defer span.End()

	if s.api.Token() != "" {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warn("logout request failed", Err(err))
		}
	}

	s.api.SetToken("")
	s.user = nil
	if err := s.store.ClearToken(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

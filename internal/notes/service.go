package notes

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"notes-go/internal/model"
)

// Service is the orchestration layer for users, folders, notes and shared links.
// Transport layers (HTTP, CLI) resolve the acting user and call into it.
type Service struct {
	database Database
	authz    *Authorizer
	hasher   PasswordHasher
	notifier Notifier
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	tokens   TokenGenerator
}

// NewService creates a new Service with the provided dependencies and the
// owner authorization policy. notifier may be nil.
func NewService(database Database, hasher PasswordHasher, notifier Notifier, logger Logger, clock Clock, idgen IDGenerator, tokens TokenGenerator) *Service {
	return &Service{
		database: database,
		authz:    NewAuthorizer(OwnerPolicy),
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		tokens:   tokens,
	}
}

// WithAuthorizer replaces the authorization decision point.
func (s *Service) WithAuthorizer(a *Authorizer) *Service {
	s.authz = a
	return s
}

// RegisterUser creates an account and sends the welcome notification.
// An address that is already registered is rejected with ErrConflict.
func (s *Service) RegisterUser(email, password string, role model.Role) (*model.User, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("parsing email %q: %w", email, ErrInvalidInput)
	}
	email = strings.ToLower(parsed.Address)
	if password == "" {
		return nil, fmt.Errorf("password is required: %w", ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleUser
	}

	existing, err := s.database.FindUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("checking for existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s already registered: %w", email, ErrConflict)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		ID:           s.idgen.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.database.CreateUser(user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user", user.ID)
	s.sendWelcome(user.Email)
	return user, nil
}

// Authenticate checks an email/password pair. Unknown addresses and wrong
// passwords both yield ErrUnauthenticated.
func (s *Service) Authenticate(email, password string) (*model.User, error) {
	user, err := s.database.FindUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	}
	return user, nil
}

// FindUser returns the user with the given ID or ErrNotFound.
func (s *Service) FindUser(id string) (*model.User, error) {
	user, err := s.database.FindUserByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

// FindUserByEmail returns the user registered under email or ErrNotFound.
func (s *Service) FindUserByEmail(email string) (*model.User, error) {
	user, err := s.database.FindUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return user, nil
}

// sendWelcome dispatches the welcome notification without waiting for it.
func (s *Service) sendWelcome(email string) {
	if s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.SendWelcome(email); err != nil {
			s.logger.Warn("welcome notification failed", "error", err)
		}
	}()
}

// now returns the current time in UTC so stored timestamps compare consistently.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

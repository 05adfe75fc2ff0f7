package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/google/uuid"
)

const AggregateType = "User"

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// Directory looks users up on the read side. *query.Handler satisfies it.
type Directory interface {
	GetUserByEmail(email string) (*readmodel.UserReadModel, bool)
}

// Service handles user domain operations
type Service struct {
	eventStore store.EventStoreInterface
	directory  Directory
	hasher     *auth.PasswordHasher
}

func NewService(es store.EventStoreInterface, directory Directory, hasher *auth.PasswordHasher) *Service {
	return &Service{eventStore: es, directory: directory, hasher: hasher}
}

// Register creates a customer account
func (s *Service) Register(ctx context.Context, email, password, name string) (*readmodel.UserReadModel, error) {
	return s.RegisterWithRole(ctx, email, password, name, auth.RoleUser)
}

// RegisterWithRole creates an account with the given role. Emails are
// compared case-insensitively.
func (s *Service) RegisterWithRole(ctx context.Context, email, password, name, role string) (*readmodel.UserReadModel, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if _, exists := s.directory.GetUserByEmail(email); exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	event := UserCreated{
		UserID:       uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.eventStore.Append(ctx, event.UserID, AggregateType, EventUserCreated, event); err != nil {
		return nil, err
	}

	return &readmodel.UserReadModel{
		ID:        event.UserID,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: event.CreatedAt,
	}, nil
}

// Authenticate checks credentials against the read side.
func (s *Service) Authenticate(email, password string) (*readmodel.UserReadModel, error) {
	user, ok := s.directory.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if !ok || !s.hasher.Check(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RecordLogin records a user login event
func (s *Service) RecordLogin(ctx context.Context, userID, sessionID, userAgent string) error {
	event := UserLoggedIn{
		UserID:    userID,
		SessionID: sessionID,
		UserAgent: userAgent,
		LoggedAt:  time.Now().UTC(),
	}

	_, err := s.eventStore.Append(ctx, userID, AggregateType, EventUserLoggedIn, event)
	return err
}

// RecordLogout records a user logout event
func (s *Service) RecordLogout(ctx context.Context, userID, sessionID string) error {
	event := UserLoggedOut{
		UserID:    userID,
		SessionID: sessionID,
		LoggedAt:  time.Now().UTC(),
	}

	_, err := s.eventStore.Append(ctx, userID, AggregateType, EventUserLoggedOut, event)
	return err
}

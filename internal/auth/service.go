// Package auth implements operator login, token sessions, and user administration.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hylla/shopfloor/internal/domain"
)

const (
	// DefaultTokenTTL is the session lifetime.
	DefaultTokenTTL = 7 * 24 * time.Hour
	// DefaultBcryptCost is the password hashing cost.
	DefaultBcryptCost = 10
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
	// SeedAdminID is the id given to the bootstrap administrator.
	SeedAdminID = "admin-1"

	tokenIssuer = "shopfloor"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailTaken         = errors.New("email already registered")
	ErrProtectedUser      = errors.New("protected user")
	ErrWeakPassword       = errors.New("password too short")
	ErrMissingSecret      = errors.New("auth secret is required")
)

// Store persists user accounts.
type Store interface {
	ListUsers(context.Context) ([]domain.User, error)
	GetUser(context.Context, string) (domain.User, error)
	GetUserByEmail(context.Context, string) (domain.User, error)
	CreateUser(context.Context, domain.User) error
	UpdateUser(context.Context, domain.User) error
	DeleteUser(context.Context, string) error
}

// Config holds token and hashing settings.
type Config struct {
	Secret          []byte
	TokenTTL        time.Duration
	BcryptCost      int
	ProtectedIDs    []string
	ProtectedEmails []string
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// Service authenticates operators and manages accounts.
type Service struct {
	mu    sync.Mutex
	store Store
	idGen func() string
	clock func() time.Time
	cfg   Config
}

// NewService constructs a new value for this package.
func NewService(store Store, idGen func() string, clock func() time.Time, cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if len(cfg.ProtectedIDs) == 0 {
		cfg.ProtectedIDs = []string{"admin-fixed", SeedAdminID}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, idGen: idGen, clock: clock, cfg: cfg}, nil
}

// TokenTTL returns the configured session lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.cfg.TokenTTL
}

// Login checks credentials and issues a signed token. Unknown, inactive, and
// wrong-password accounts all fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !user.Active() {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, expiresAt, err := s.IssueToken(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// IssueToken signs an HS256 token whose subject is userID.
func (s *Service) IssueToken(userID string) (string, time.Time, error) {
	now := s.clock().UTC()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate resolves a token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, ErrUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.store.GetUser(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, ErrUnauthorized
	}
	if err != nil {
		return domain.User{}, err
	}
	if !user.Active() {
		return domain.User{}, ErrUnauthorized
	}
	return user.Public(), nil
}

// ListUsers lists users whose name or email contains query, case-insensitively.
func (s *Service) ListUsers(ctx context.Context, query string) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if query != "" && !strings.Contains(strings.ToLower(u.Name), query) && !strings.Contains(strings.ToLower(u.Email), query) {
			continue
		}
		out = append(out, u.Public())
	}
	return out, nil
}

// GetUser returns one user without its password hash.
func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

// CreateUserInput holds input values for create user operations.
type CreateUserInput struct {
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Role        domain.Role         `json:"role"`
	Permissions []domain.Permission `json:"permissions"`
	Password    string              `json:"password"`
	Status      domain.UserStatus   `json:"status"`
}

// CreateUser validates and stores a new account.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUser(ctx, s.nextID(), in)
}

func (s *Service) createUser(ctx context.Context, id string, in CreateUserInput) (domain.User, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return domain.User{}, err
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, in.Role)
	}
	status := in.Status
	if status == "" {
		status = domain.UserActive
	}
	if status != domain.UserActive && status != domain.UserInactive {
		return domain.User{}, fmt.Errorf("%w: user status %q", domain.ErrValidation, status)
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return domain.User{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.clock().UTC()
	user := domain.User{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		Permissions:  domain.NormalizePermissions(in.Role, in.Permissions),
		Status:       status,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

// UserPatch holds optional fields for UpdateUser. Nil fields are left unchanged.
type UserPatch struct {
	Name        *string              `json:"name"`
	Email       *string              `json:"email"`
	Phone       *string              `json:"phone"`
	Role        *domain.Role         `json:"role"`
	Permissions *[]domain.Permission `json:"permissions"`
	Status      *domain.UserStatus   `json:"status"`
	Password    *string              `json:"password"`
}

// UpdateUser applies a patch. Protected accounts keep their email.
func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Name != nil {
		name, err := normalizeName(*patch.Name)
		if err != nil {
			return domain.User{}, err
		}
		user.Name = name
	}
	if patch.Email != nil {
		email, err := domain.NormalizeEmail(*patch.Email)
		if err != nil {
			return domain.User{}, err
		}
		if email != user.Email {
			if s.protected(user) {
				return domain.User{}, fmt.Errorf("%w: email of %s cannot change", ErrProtectedUser, user.ID)
			}
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return domain.User{}, err
			}
			user.Email = email
		}
	}
	if patch.Phone != nil {
		user.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return domain.User{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, *patch.Role)
		}
		user.Role = *patch.Role
		if patch.Permissions == nil {
			user.Permissions = user.Role.DefaultPermissions()
		}
	}
	if patch.Permissions != nil {
		user.Permissions = domain.NormalizePermissions(user.Role, *patch.Permissions)
	}
	if patch.Status != nil {
		if *patch.Status != domain.UserActive && *patch.Status != domain.UserInactive {
			return domain.User{}, fmt.Errorf("%w: user status %q", domain.ErrValidation, *patch.Status)
		}
		user.Status = *patch.Status
	}
	if patch.Password != nil {
		hash, err := s.hash(*patch.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.clock().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

// DeleteUser removes an account. Protected accounts cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if s.protected(user) {
		return fmt.Errorf("%w: %s cannot be deleted", ErrProtectedUser, user.ID)
	}
	return s.store.DeleteUser(ctx, id)
}

// SeedAdmin holds bootstrap administrator credentials.
type SeedAdmin struct {
	Name     string
	Email    string
	Password string
}

// SeedAdminIfEmpty creates the bootstrap administrator when no user exists yet.
// It reports whether a user was created.
func (s *Service) SeedAdminIfEmpty(ctx context.Context, seed SeedAdmin) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	if len(users) > 0 {
		return domain.User{}, false, nil
	}
	if strings.TrimSpace(seed.Email) == "" || seed.Password == "" {
		return domain.User{}, false, nil
	}
	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = "Administrator"
	}
	user, err := s.createUser(ctx, SeedAdminID, CreateUserInput{
		Name:     name,
		Email:    seed.Email,
		Role:     domain.RoleAdmin,
		Password: seed.Password,
	})
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEmailTaken, email)
}

func (s *Service) protected(user domain.User) bool {
	if slices.Contains(s.cfg.ProtectedIDs, user.ID) {
		return true
	}
	return slices.ContainsFunc(s.cfg.ProtectedEmails, func(email string) bool {
		return strings.EqualFold(email, user.Email)
	})
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, MinPasswordLength)
	}
	raw, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(raw), nil
}

func (s *Service) nextID() string {
	if s.idGen == nil {
		return fmt.Sprintf("user-%d", s.clock().UnixNano())
	}
	return s.idGen()
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len([]rune(name)) < 2 {
		return "", fmt.Errorf("%w: name needs at least 2 characters", domain.ErrInvalidName)
	}
	return name, nil
}

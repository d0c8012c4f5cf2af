package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hylla/shopfloor/internal/adapters/storage/userfile"
	"github.com/hylla/shopfloor/internal/domain"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	store, err := userfile.Open(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	clock := &testClock{now: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)}
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("user-%d", n)
	}
	svc, err := NewService(store, idGen, clock.Now, Config{
		Secret:     []byte("test-secret"),
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return svc, clock
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(nil, nil, nil, Config{})
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestSeedLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	admin, created, err := svc.SeedAdminIfEmpty(ctx, SeedAdmin{Email: " Admin@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, SeedAdminID, admin.ID)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.Equal(t, "Administrator", admin.Name)
	assert.Empty(t, admin.PasswordHash)

	_, created, err = svc.SeedAdminIfEmpty(ctx, SeedAdmin{Email: "other@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login(ctx, "admin@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := svc.Login(ctx, "ADMIN@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, clock.now.Add(DefaultTokenTTL), session.ExpiresAt)
	assert.Empty(t, session.User.PasswordHash)

	user, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, SeedAdminID, user.ID)

	_, err = svc.Authenticate(ctx, session.Token+"x")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	clock.now = clock.now.Add(DefaultTokenTTL + time.Minute)
	_, err = svc.Authenticate(ctx, session.Token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	other, err := NewService(nil, nil, svc.clock, Config{Secret: []byte("other-secret")})
	require.NoError(t, err)

	token, _, err := other.IssueToken(SeedAdminID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestInactiveUserCannotLogIn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	user, err := svc.CreateUser(ctx, CreateUserInput{
		Name:     "Bruno Costa",
		Email:    "bruno@example.com",
		Role:     domain.RoleProduction,
		Password: "secret123",
	})
	require.NoError(t, err)
	session, err := svc.Login(ctx, "bruno@example.com", "secret123")
	require.NoError(t, err)

	inactive := domain.UserInactive
	_, err = svc.UpdateUser(ctx, user.ID, UserPatch{Status: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "bruno@example.com", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, session.Token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	valid := CreateUserInput{Name: "Ana Lima", Email: "ana@example.com", Role: domain.RoleSales, Password: "secret123"}
	user, err := svc.CreateUser(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, domain.UserActive, user.Status)
	assert.Equal(t, domain.RoleSales.DefaultPermissions(), user.Permissions)

	cases := []struct {
		name string
		edit func(*CreateUserInput)
		want error
	}{
		{name: "short name", edit: func(in *CreateUserInput) { in.Name = "A" }, want: domain.ErrInvalidName},
		{name: "bad email", edit: func(in *CreateUserInput) { in.Email = "not-an-email" }, want: domain.ErrInvalidEmail},
		{name: "unknown role", edit: func(in *CreateUserInput) { in.Role = "owner" }, want: domain.ErrInvalidRole},
		{name: "short password", edit: func(in *CreateUserInput) { in.Password = "12345" }, want: ErrWeakPassword},
		{name: "taken email", edit: func(in *CreateUserInput) { in.Email = "ANA@example.com" }, want: ErrEmailTaken},
		{name: "bad status", edit: func(in *CreateUserInput) { in.Status = "paused" }, want: domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			in.Email = "new@example.com"
			tc.edit(&in)
			_, err := svc.CreateUser(ctx, in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	users, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUpdateAndDeleteRespectProtectedUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, _, err := svc.SeedAdminIfEmpty(ctx, SeedAdmin{Name: "Root", Email: "root@example.com", Password: "secret123"})
	require.NoError(t, err)
	carla, err := svc.CreateUser(ctx, CreateUserInput{Name: "Carla Dias", Email: "carla@example.com", Role: domain.RoleViewer, Password: "secret123"})
	require.NoError(t, err)

	email := "new-root@example.com"
	_, err = svc.UpdateUser(ctx, SeedAdminID, UserPatch{Email: &email})
	require.ErrorIs(t, err, ErrProtectedUser)
	require.ErrorIs(t, svc.DeleteUser(ctx, SeedAdminID), ErrProtectedUser)

	sameEmail := "ROOT@example.com"
	name := "Root Admin"
	admin, err := svc.UpdateUser(ctx, SeedAdminID, UserPatch{Email: &sameEmail, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Root Admin", admin.Name)

	taken := "root@example.com"
	_, err = svc.UpdateUser(ctx, carla.ID, UserPatch{Email: &taken})
	require.ErrorIs(t, err, ErrEmailTaken)

	role := domain.RoleProduction
	password := "another-secret"
	carla, err = svc.UpdateUser(ctx, carla.ID, UserPatch{Role: &role, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleProduction.DefaultPermissions(), carla.Permissions)
	_, err = svc.Login(ctx, "carla@example.com", "another-secret")
	require.NoError(t, err)

	matches, err := svc.ListUsers(ctx, "CARLA")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, carla.ID, matches[0].ID)

	require.NoError(t, svc.DeleteUser(ctx, carla.ID))
	require.ErrorIs(t, svc.DeleteUser(ctx, carla.ID), domain.ErrNotFound)
}

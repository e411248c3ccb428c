package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"konzertticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[int64]*domain.User
	nextID  int64
	roles   map[int64][]int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[int64]*domain.User),
		nextID:  1,
		roles:   make(map[int64][]int64),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	user.ID = f.nextID
	f.nextID++
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	f.roles[userID] = append(f.roles[userID], roleID)
	return nil
}

type fakeRoleRepo struct{}

func (fakeRoleRepo) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	switch code {
	case domain.RoleUser:
		return &domain.Role{ID: 1, Code: domain.RoleUser}, nil
	case domain.RoleAdmin:
		return &domain.Role{ID: 2, Code: domain.RoleAdmin}, nil
	}
	return nil, fmt.Errorf("unknown role %q", code)
}

func (fakeRoleRepo) ListByUserID(ctx context.Context, userID int64) ([]*domain.Role, error) {
	return []*domain.Role{{ID: 1, Code: domain.RoleUser}}, nil
}

// fakeHasher records the plaintext so Compare can check it without bcrypt.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) {
	return salt + ":" + password, nil
}

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return fmt.Errorf("mismatch")
	}
	return nil
}

type fakeTokenIssuer struct {
	lastUserID int64
	lastRoles  []string
}

func (f *fakeTokenIssuer) Issue(userID int64, email string, roles []string, expiry time.Duration) (string, error) {
	f.lastUserID = userID
	f.lastRoles = roles
	return "token-for-" + email, nil
}

func newUserFixture() (domain.UserService, *fakeUserRepo, *fakeTokenIssuer) {
	userRepo := newFakeUserRepo()
	issuer := &fakeTokenIssuer{}
	svc := NewUserService(userRepo, fakeRoleRepo{}, fakeHasher{}, issuer, time.Hour)
	return svc, userRepo, issuer
}

func TestUserService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with default role", func(t *testing.T) {
		svc, userRepo, _ := newUserFixture()
		user, err := svc.SignUp(ctx, "Max@Example.COM ", "secret1", " Max Mustermann ")
		require.NoError(t, err)
		assert.Equal(t, "max@example.com", user.Email)
		assert.Equal(t, "Max Mustermann", user.Name)
		assert.NotEmpty(t, user.PasswordHash)
		assert.Equal(t, []int64{1}, userRepo.roles[user.ID])
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, _, _ := newUserFixture()
		_, err := svc.SignUp(ctx, "max@example.com", "secret1", "Max")
		require.NoError(t, err)
		_, err = svc.SignUp(ctx, "max@example.com", "secret2", "Other Max")
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc, _, _ := newUserFixture()
		_, err := svc.SignUp(ctx, "not-an-email", "secret1", "Max")
		require.Error(t, err)
		_, err = svc.SignUp(ctx, "max@example.com", "short", "Max")
		require.Error(t, err)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		svc, _, issuer := newUserFixture()
		created, err := svc.SignUp(ctx, "max@example.com", "secret1", "Max")
		require.NoError(t, err)

		token, user, err := svc.Login(ctx, "max@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "token-for-max@example.com", token)
		assert.Equal(t, created.ID, user.ID)
		assert.Equal(t, created.ID, issuer.lastUserID)
		assert.Equal(t, []string{domain.RoleUser}, issuer.lastRoles)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _, _ := newUserFixture()
		_, err := svc.SignUp(ctx, "max@example.com", "secret1", "Max")
		require.NoError(t, err)
		_, _, err = svc.Login(ctx, "max@example.com", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, _, _ := newUserFixture()
		_, _, err := svc.Login(ctx, "nobody@example.com", "secret1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestUserService_GetByID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newUserFixture()

	created, err := svc.SignUp(ctx, "max@example.com", "secret1", "Max")
	require.NoError(t, err)

	user, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	_, err = svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
)

type mockRepo struct {
	users       map[int64]*User
	lastLoginID int64
	touchErr    error
}

func newMockRepo(users ...*User) *mockRepo {
	repo := &mockRepo{users: make(map[int64]*User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockRepo) FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	for _, u := range m.users {
		if u.Username == usernameOrEmail || u.Email == usernameOrEmail {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) TouchLastLogin(ctx context.Context, id int64) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	m.lastLoginID = id
	return nil
}

type mockAuthorizer struct {
	bundle *rbac.ResolvedAuthorization
	err    error
	calls  int
}

func (m *mockAuthorizer) ResolveForPrincipal(ctx context.Context, principal rbac.Principal) (*rbac.ResolvedAuthorization, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.bundle, nil
}

type mockNotifier struct {
	userIDs []int64
}

func (m *mockNotifier) NotifyLogin(ctx context.Context, userID int64, username, ip, userAgent string) error {
	m.userIDs = append(m.userIDs, userID)
	return nil
}

func activeUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	roleID := int64(4)
	return &User{
		ID:           9,
		Username:     "clerk",
		Email:        "clerk@clinic.example",
		PasswordHash: string(hash),
		IsActive:     true,
		ClinicID:     1,
		RoleID:       &roleID,
	}
}

func secretariaBundle() *rbac.ResolvedAuthorization {
	return &rbac.ResolvedAuthorization{
		RoleID:      4,
		RoleName:    "Secretaria",
		Permissions: rbac.NewPermissionSet("patients.view", "appointments.view"),
	}
}

func newLoginService(t *testing.T, repo *mockRepo, authorizer *mockAuthorizer) (*Service, *mockNotifier) {
	t.Helper()
	issuer := NewTokenIssuer("test-secret", 30*time.Minute, 24*time.Hour)
	notifier := &mockNotifier{}
	return NewService(repo, authorizer, issuer, notifier), notifier
}

func TestLoginIssuesEnrichedTokens(t *testing.T) {
	user := activeUser(t, "s3cret-pass")
	repo := newMockRepo(user)
	authorizer := &mockAuthorizer{bundle: secretariaBundle()}
	svc, _ := newLoginService(t, repo, authorizer)

	result, err := svc.Login(context.Background(), "clerk", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user, result.User)
	assert.Equal(t, "Secretaria", result.Auth.RoleName)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	issuer := NewTokenIssuer("test-secret", 30*time.Minute, 24*time.Hour)
	claims, err := issuer.ParseAccess(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"appointments.view", "patients.view"}, claims.Permissions)
}

func TestLoginByEmail(t *testing.T) {
	repo := newMockRepo(activeUser(t, "s3cret-pass"))
	svc, _ := newLoginService(t, repo, &mockAuthorizer{bundle: secretariaBundle()})

	_, err := svc.Login(context.Background(), "clerk@clinic.example", "s3cret-pass")
	require.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockRepo(activeUser(t, "s3cret-pass"))
	svc, _ := newLoginService(t, repo, &mockAuthorizer{bundle: secretariaBundle()})

	_, err := svc.Login(context.Background(), "clerk", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newLoginService(t, newMockRepo(), &mockAuthorizer{bundle: secretariaBundle()})

	_, err := svc.Login(context.Background(), "ghost", "whatever1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "s3cret-pass")
	user.IsActive = false
	svc, _ := newLoginService(t, newMockRepo(user), &mockAuthorizer{bundle: secretariaBundle()})

	_, err := svc.Login(context.Background(), "clerk", "s3cret-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginUnresolvedRoleFails(t *testing.T) {
	user := activeUser(t, "s3cret-pass")
	svc, _ := newLoginService(t, newMockRepo(user), &mockAuthorizer{err: rbac.ErrUnresolvedRole})

	_, err := svc.Login(context.Background(), "clerk", "s3cret-pass")
	assert.ErrorIs(t, err, rbac.ErrUnresolvedRole)
}

func TestRefreshReResolvesPermissions(t *testing.T) {
	user := activeUser(t, "s3cret-pass")
	repo := newMockRepo(user)
	authorizer := &mockAuthorizer{bundle: secretariaBundle()}
	svc, _ := newLoginService(t, repo, authorizer)

	login, err := svc.Login(context.Background(), "clerk", "s3cret-pass")
	require.NoError(t, err)

	// Grants changed between login and refresh.
	authorizer.bundle = &rbac.ResolvedAuthorization{
		RoleID:      4,
		RoleName:    "Secretaria",
		Permissions: rbac.NewPermissionSet("patients.view"),
	}

	refreshed, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 2, authorizer.calls)

	issuer := NewTokenIssuer("test-secret", 30*time.Minute, 24*time.Hour)
	claims, err := issuer.ParseAccess(refreshed.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"patients.view"}, claims.Permissions)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	repo := newMockRepo(activeUser(t, "s3cret-pass"))
	svc, _ := newLoginService(t, repo, &mockAuthorizer{bundle: secretariaBundle()})

	login, err := svc.Login(context.Background(), "clerk", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.Tokens.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRefreshDeactivatedUser(t *testing.T) {
	user := activeUser(t, "s3cret-pass")
	repo := newMockRepo(user)
	svc, _ := newLoginService(t, repo, &mockAuthorizer{bundle: secretariaBundle()})

	login, err := svc.Login(context.Background(), "clerk", "s3cret-pass")
	require.NoError(t, err)

	user.IsActive = false
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRecordLoginTouchesAndNotifies(t *testing.T) {
	user := activeUser(t, "s3cret-pass")
	repo := newMockRepo(user)
	svc, notifier := newLoginService(t, repo, &mockAuthorizer{bundle: secretariaBundle()})

	err := svc.RecordLogin(context.Background(), user, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, user.ID, repo.lastLoginID)
	assert.Equal(t, []int64{user.ID}, notifier.userIDs)
}

package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prontivus/prontivus/internal/shared"
)

type mockRepository struct {
	roles  map[int64]*Role
	byName map[string]*Role
	nextID int64
}

func newMockRepository(seed ...Role) *mockRepository {
	repo := &mockRepository{
		roles:  make(map[int64]*Role),
		byName: make(map[string]*Role),
		nextID: 1,
	}
	for _, role := range seed {
		repo.put(role)
	}
	return repo
}

func (m *mockRepository) put(role Role) Role {
	if role.ID == 0 {
		role.ID = m.nextID
		m.nextID++
	} else if role.ID >= m.nextID {
		m.nextID = role.ID + 1
	}
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	m.roles[role.ID] = &role
	m.byName[role.Name] = &role
	return role
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (m *mockRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return *role, nil
}

func (m *mockRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	role, ok := m.byName[name]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return *role, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, name, description string, isSystem bool) (Role, error) {
	if _, exists := m.byName[name]; exists {
		return Role{}, shared.ErrDuplicate
	}
	return m.put(Role{Name: name, Description: description, IsSystem: isSystem}), nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	if other, exists := m.byName[name]; exists && other.ID != id {
		return Role{}, shared.ErrDuplicate
	}
	delete(m.byName, role.Name)
	role.Name = name
	role.Description = description
	m.byName[name] = role
	return *role, nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	role, ok := m.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.byName, role.Name)
	delete(m.roles, id)
	return nil
}

type mockInvalidator struct {
	roleIDs []int64
}

func (m *mockInvalidator) InvalidateRoles(ctx context.Context, roleIDs ...int64) error {
	m.roleIDs = append(m.roleIDs, roleIDs...)
	return nil
}

func systemRoles() []Role {
	out := make([]Role, 0, len(SystemRoleNames()))
	for _, name := range SystemRoleNames() {
		out = append(out, Role{Name: name, IsSystem: true})
	}
	return out
}

func TestCreateRoleIsAlwaysCustom(t *testing.T) {
	repo := newMockRepository(systemRoles()...)
	svc := NewService(repo, &mockInvalidator{})

	role, err := svc.CreateRole(context.Background(), "Estagiario", "Trainee access")
	require.NoError(t, err)
	assert.False(t, role.IsSystem)
}

func TestCreateRoleRejectsBlankName(t *testing.T) {
	svc := NewService(newMockRepository(), &mockInvalidator{})

	_, err := svc.CreateRole(context.Background(), "   ", "")
	require.Error(t, err)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	repo := newMockRepository(systemRoles()...)
	svc := NewService(repo, &mockInvalidator{})

	_, err := svc.CreateRole(context.Background(), RoleDoctor, "dup")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateRoleInvalidatesCache(t *testing.T) {
	repo := newMockRepository()
	custom, err := repo.CreateRole(context.Background(), "Estagiario", "", false)
	require.NoError(t, err)
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	_, err = svc.UpdateRole(context.Background(), custom.ID, "Residente", "Resident access")
	require.NoError(t, err)
	assert.Equal(t, []int64{custom.ID}, inv.roleIDs)
}

func TestDeleteRoleProtectsSystemRoles(t *testing.T) {
	repo := newMockRepository(systemRoles()...)
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	admin, err := repo.GetRoleByName(context.Background(), RoleSuperAdmin)
	require.NoError(t, err)

	err = svc.DeleteRole(context.Background(), admin.ID)
	assert.ErrorIs(t, err, shared.ErrSystemRole)
	assert.Empty(t, inv.roleIDs)

	_, err = repo.GetRole(context.Background(), admin.ID)
	require.NoError(t, err)
}

func TestDeleteCustomRoleInvalidates(t *testing.T) {
	repo := newMockRepository()
	custom, err := repo.CreateRole(context.Background(), "Estagiario", "", false)
	require.NoError(t, err)
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)

	require.NoError(t, svc.DeleteRole(context.Background(), custom.ID))
	assert.Equal(t, []int64{custom.ID}, inv.roleIDs)

	_, err = repo.GetRole(context.Background(), custom.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRoleNotFound(t *testing.T) {
	svc := NewService(newMockRepository(), &mockInvalidator{})
	err := svc.DeleteRole(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDirectoryAdaptsRepository(t *testing.T) {
	repo := newMockRepository(systemRoles()...)
	dir := NewDirectory(repo)

	doctor, err := repo.GetRoleByName(context.Background(), RoleDoctor)
	require.NoError(t, err)

	ref, err := dir.RoleByID(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, ref.Name)

	ref, err = dir.RoleByName(context.Background(), RoleSecretary)
	require.NoError(t, err)
	assert.Equal(t, RoleSecretary, ref.Name)

	_, err = dir.RoleByID(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

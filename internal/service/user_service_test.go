package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsroom-tools/codex-api/internal/models"
)

type userAdminStub struct {
	users        map[string]*models.User
	revokedUsers []string
}

func (s *userAdminStub) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	result := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, *user)
	}
	return result, len(s.users), nil
}

func (s *userAdminStub) SetUserActive(ctx context.Context, id string, active bool) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Active = active
	return nil
}

func (s *userAdminStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return nil
}

func TestUserServiceListUsersNormalizesPaging(t *testing.T) {
	stub := &userAdminStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Active: true},
	}}
	svc := NewUserService(stub, nil)

	users, pagination, err := svc.ListUsers(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceDeactivateRevokesSessions(t *testing.T) {
	stub := &userAdminStub{users: map[string]*models.User{
		"user-2": {ID: "user-2", Active: true},
	}}
	svc := NewUserService(stub, nil)

	require.NoError(t, svc.SetActive(context.Background(), "admin-1", "user-2", false))
	require.False(t, stub.users["user-2"].Active)
	require.Equal(t, []string{"user-2"}, stub.revokedUsers)
}

func TestUserServiceReactivateKeepsSessionsUntouched(t *testing.T) {
	stub := &userAdminStub{users: map[string]*models.User{
		"user-2": {ID: "user-2", Active: false},
	}}
	svc := NewUserService(stub, nil)

	require.NoError(t, svc.SetActive(context.Background(), "admin-1", "user-2", true))
	require.True(t, stub.users["user-2"].Active)
	require.Empty(t, stub.revokedUsers)
}

func TestUserServiceSetActiveRejectsSelf(t *testing.T) {
	stub := &userAdminStub{users: map[string]*models.User{
		"admin-1": {ID: "admin-1", Active: true},
	}}
	svc := NewUserService(stub, nil)

	err := svc.SetActive(context.Background(), "admin-1", "admin-1", false)
	require.Equal(t, "CONFLICT", errCode(t, err))
}

func TestUserServiceSetActiveUnknownUser(t *testing.T) {
	svc := NewUserService(&userAdminStub{users: map[string]*models.User{}}, nil)

	err := svc.SetActive(context.Background(), "admin-1", "ghost", false)
	require.Equal(t, "NOT_FOUND", errCode(t, err))
}

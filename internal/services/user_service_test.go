package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

func TestCreateAndFindUser(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)

	u, err := svc.CreateUser(NewUserInput{Email: " Alice@Example.com ", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, models.UserActive, u.Status)
	assert.Equal(t, models.DefaultLanguage, u.PreferredLanguage)

	found, err := svc.FindByEmail("ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	got, err := svc.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)

	_, err := svc.CreateUser(NewUserInput{Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = svc.CreateUser(NewUserInput{Email: "BOB@example.com"})
	assert.True(t, errors.IsConflictError(err))

	_, err = svc.CreateUser(NewUserInput{Email: "not-an-email"})
	assert.True(t, errors.IsValidationError(err))
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)

	_, err := svc.GetUser("missing")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = svc.GetUser("../etc/passwd")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestListUsersSearchAndPaging(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)

	for _, email := range []string{"ann@a.com", "ben@b.com", "cat@a.com"} {
		_, err := svc.CreateUser(NewUserInput{Email: email, Name: email[:3], PasswordHash: "secret-hash"})
		require.NoError(t, err)
	}

	page, err := svc.ListUsers(UserListQuery{PageQuery: PageQuery{Page: 1, PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)
	for _, u := range page.Items {
		assert.Empty(t, u.PasswordHash)
	}

	page, err = svc.ListUsers(UserListQuery{PageQuery: PageQuery{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = svc.ListUsers(UserListQuery{Search: "@A.COM"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = svc.ListUsers(UserListQuery{Search: "ben"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ben@b.com", page.Items[0].Email)
}

func TestUpdateUser(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)
	u, err := svc.CreateUser(NewUserInput{Email: "dan@example.com"})
	require.NoError(t, err)

	role := models.RoleAdmin
	status := models.UserDisabled
	name := "  Dan  "
	updated, err := svc.UpdateUser(u.ID, models.UserUpdate{Name: &name, Role: &role, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Dan", updated.Name)
	assert.True(t, updated.IsAdmin())
	assert.Equal(t, models.UserDisabled, updated.Status)

	bad := models.Role("root")
	_, err = svc.UpdateUser(u.ID, models.UserUpdate{Role: &bad})
	assert.True(t, errors.IsValidationError(err))

	got, err := svc.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	_, err = svc.UpdateUser("missing", models.UserUpdate{Name: &name})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestDeleteUser(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)
	u, err := svc.CreateUser(NewUserInput{Email: "eve@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(u.ID))
	_, err = svc.GetUser(u.ID)
	assert.True(t, errors.IsNotFoundError(err))

	assert.True(t, errors.IsNotFoundError(svc.DeleteUser(u.ID)))
}

func TestSetPreferredLanguage(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)
	u, err := svc.CreateUser(NewUserInput{Email: "fay@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.SetPreferredLanguage(u.ID, models.LanguageZH))
	got, err := svc.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageZH, got.PreferredLanguage)
}

func TestEnsureAdmin(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)

	require.NoError(t, svc.EnsureAdmin("", ""))
	require.NoError(t, svc.EnsureAdmin("root@example.com", "admin-password"))
	require.NoError(t, svc.EnsureAdmin("root@example.com", "admin-password"))

	page, err := svc.ListUsers(UserListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	admin, err := svc.FindByEmail("root@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, utils.CheckPassword(admin.PasswordHash, "admin-password"))
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	svc := NewUserService(newTestStorage(t), nil)
	u, err := svc.CreateUser(NewUserInput{Email: "gus@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.EnsureAdmin("gus@example.com", "whatever-password"))

	got, err := svc.GetUser(u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}

package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/user"
	sqlxrepos "github.com/skmethodistpj/laporan/storage/database/sqlx"
	"github.com/skmethodistpj/laporan/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	created := time.Date(2026, 1, 5, 1, 0, 0, 0, time.UTC)
	gb := testutil.CreateUser(t, repo, "Guru Besar", "gurubesar", "gb@sk.edu.my", []string{user.RoleAdminPrincipal}, true, created)
	guru := testutil.CreateUser(t, repo, "Aminah", "aminah", "", []string{user.RoleTeacher}, true, created.Add(time.Hour))
	testutil.CreateUser(t, repo, "Cuti", "", "cuti@sk.edu.my", []string{user.RoleTeacher}, false, created.Add(2*time.Hour))

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUserByID(ctx, gb.ID)
		require.NoError(t, err)
		assert.Equal(t, gb.Username, usr.Username)
		assert.Equal(t, []string{user.RoleAdminPrincipal}, usr.Roles)
		assert.True(t, usr.LastLogin.IsZero())
		assert.NoError(t, usr.CheckPassword(testutil.Password))

		usr, err = repo.GetUserByUsernameOrEmail(ctx, "gb@sk.edu.my")
		require.NoError(t, err)
		assert.Equal(t, gb.ID, usr.ID)

		_, err = repo.GetUserByUsernameOrEmail(ctx, "")
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUniqueness(ctx, "aminah", "", ""))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, "baru", "gb@sk.edu.my", ""))
		assert.NoError(t, repo.CheckUniqueness(ctx, "aminah", "", guru.ID))
		assert.NoError(t, repo.CheckUniqueness(ctx, "", "", ""))
	})

	t.Run("filter and order", func(t *testing.T) {
		all, err := repo.QueryAllUsers(ctx, core.DBOrdering{Field: "created_at"})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Cuti", all[0].Name)

		no := false
		inactive, err := repo.FilterUsers(ctx, user.QueryFilter{IsActive: &no})
		require.NoError(t, err)
		require.Len(t, inactive, 1)
		assert.Equal(t, "Cuti", inactive[0].Name)

		admins, err := repo.FilterUsers(ctx, user.QueryFilter{Roles: user.AdminRoles, Search: "besar"})
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, gb.ID, admins[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		yes := true
		usr, err := repo.UpdateUser(ctx, user.User{
			ID:        guru.ID,
			Name:      "Aminah Binti Ali",
			Username:  "aminah",
			Roles:     []string{user.RoleAdminCoordinator},
			UpdatedAt: created.Add(24 * time.Hour),
		}, &yes)
		require.NoError(t, err)
		assert.Equal(t, "Aminah Binti Ali", usr.Name)
		assert.Equal(t, []string{user.RoleAdminCoordinator}, usr.Roles)
		assert.NoError(t, usr.CheckPassword(testutil.Password), "password hash kept")

		_, err = repo.UpdateUser(ctx, user.User{ID: "00000000-0000-0000-0000-000000000000"}, nil)
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("last login", func(t *testing.T) {
		at := time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)
		require.NoError(t, repo.SetLastLogin(ctx, gb.ID, at))
		usr, err := repo.GetUserByID(ctx, gb.ID)
		require.NoError(t, err)
		assert.True(t, at.Equal(usr.LastLogin))
	})
}

package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworkhelper/api/core"
	. "github.com/homeworkhelper/api/core/user"
	dummydb "github.com/homeworkhelper/api/storage/database/dummy"
	inmemdb "github.com/homeworkhelper/api/storage/database/inmem"
	testutil "github.com/homeworkhelper/api/tests"
)

func setup(t *testing.T) (*Service, Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)
	validate, _ := testutil.NewValidator()
	return NewService(repo, validate), repo
}

func TestService_Touch(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	require.NoError(t, svc.Touch(ctx, Identity{}))
	_, err := repo.GetUserByUID(ctx, "")
	assert.Equal(t, ErrNotFound, errors.Cause(err), "guests are not recorded")

	require.NoError(t, svc.Touch(ctx, Identity{UID: "uid-1", Email: " Jane@Example.com "}))
	usr, err := svc.GetByUID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", usr.Email)
	assert.Equal(t, RoleStudent, usr.Role)
	assert.False(t, usr.LastActive.IsZero())

	first := usr.LastActive
	require.NoError(t, svc.Touch(ctx, Identity{UID: "uid-1", Email: "jane@example.com"}))
	usr, err = svc.GetByUID(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, usr.LastActive.Before(first))

	t.Run("admin existing by email gets its uid", func(t *testing.T) {
		testutil.CreateUser(t, repo, "", "admin@example.com", RoleAdmin)
		require.NoError(t, svc.Touch(ctx, Identity{UID: "uid-admin", Email: "admin@example.com"}))

		usr, err := svc.GetByUID(ctx, "uid-admin")
		require.NoError(t, err)
		assert.True(t, usr.IsAdmin())
	})

	t.Run("storage unavailable", func(t *testing.T) {
		validate, _ := testutil.NewValidator()
		svc := NewService(dummydb.NewUserRepository(dummydb.Open(nil)), validate)
		err := svc.Touch(ctx, Identity{UID: "uid-1"})
		assert.Equal(t, core.ErrUnavailable, errors.Cause(err))
	})
}

func TestService_SetRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	existing := testutil.CreateUser(t, repo, "uid-1", "student@example.com", RoleStudent)

	tests := []struct {
		name      string
		req       SetRole
		wantField string
		check     func(t *testing.T, usr User)
	}{
		{name: "missing email", req: SetRole{Role: RoleAdmin}, wantField: "email"},
		{name: "bad email", req: SetRole{Email: "nope", Role: RoleAdmin}, wantField: "email"},
		{name: "unknown role", req: SetRole{Email: "a@example.com", Role: "teacher"}, wantField: "role"},
		{
			name: "promote existing user",
			req:  SetRole{Email: " STUDENT@example.com", Role: "Admin"},
			check: func(t *testing.T, usr User) {
				assert.Equal(t, existing.ID, usr.ID)
				assert.Equal(t, "uid-1", usr.UID)
				assert.True(t, usr.IsAdmin())
			},
		},
		{
			name: "create unknown user",
			req:  SetRole{Email: "new@example.com", Role: RoleAdmin, UID: "uid-new"},
			check: func(t *testing.T, usr User) {
				assert.NotEmpty(t, usr.ID)
				assert.Equal(t, "new@example.com", usr.Email)
				found, err := svc.GetByUID(ctx, "uid-new")
				require.NoError(t, err)
				assert.Equal(t, usr.ID, found.ID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.SetRole(ctx, tt.req)
			if tt.wantField != "" {
				var vErrs validator.ValidationErrors
				require.True(t, errors.As(err, &vErrs), "got %v", err)
				assert.Equal(t, tt.wantField, vErrs[0].Field())
				return
			}
			require.NoError(t, err)
			tt.check(t, usr)
		})
	}
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	testutil.CreateUser(t, repo, "uid-1", "student1@example.com", RoleAdmin)
	testutil.CreateUser(t, repo, "uid-9", "keep@example.com", RoleStudent)

	seeds := []User{{Email: "student1@example.com"}, {Email: "student2@example.com"}}
	require.NoError(t, svc.Seed(ctx, seeds))
	require.NoError(t, svc.Seed(ctx, seeds))

	usr, err := svc.GetByEmail(ctx, "student1@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, usr.Role, "seeding replaces the user")
	assert.Empty(t, usr.UID)

	_, err = svc.GetByEmail(ctx, "Student2@example.com")
	assert.NoError(t, err)
	_, err = svc.GetByEmail(ctx, "keep@example.com")
	assert.NoError(t, err)
}

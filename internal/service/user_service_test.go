package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
)

func newUsers() (*UserService, *auth.JWTer) {
	j := auth.NewJWTer("test-secret", "shop-api", time.Hour)
	return NewUserService(j), j
}

func creds(email, pw string) Credentials { return Credentials{Email: &email, Password: &pw} }

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc, j := newUsers()

	u, err := svc.Register(ctx, db, creds("a@x.com", "pw"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "pw", u.PasswordHash)

	_, err = svc.Register(ctx, db, creds("a@x.com", "other"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "User a@x.com already exist.", err.Error())

	tok, err := svc.Login(ctx, db, creds("a@x.com", "pw"))
	require.NoError(t, err)
	claims, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UID)

	_, err = svc.Login(ctx, db, creds("a@x.com", "nope"))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "Could not verify!", err.Error())

	_, err = svc.Login(ctx, db, creds("b@x.com", "pw"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "User b@x.com not exist.", err.Error())
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc, _ := newUsers()

	_, err := svc.Register(ctx, db, Credentials{})
	assert.Equal(t, "Missing fields : ['email', 'password']", err.Error())

	_, err = svc.Register(ctx, db, creds("not-an-email", "pw"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Register(ctx, db, creds("a@x.com", ""))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Login(ctx, db, Credentials{Email: strPtr("a@x.com")})
	assert.Equal(t, "Missing fields : ['password']", err.Error())
}

func TestResolveAndMe(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc, _ := newUsers()

	admin, created, err := svc.EnsureUser(ctx, db, "root@x.com", "pw", "Root", domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)
	again, created, err := svc.EnsureUser(ctx, db, "root@x.com", "changed", "Root", domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	id, err := svc.Resolve(ctx, db, admin.ID)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, "root@x.com", id.Email)

	_, err = svc.Resolve(ctx, db, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found.", err.Error())

	me, err := svc.Me(ctx, db, id)
	require.NoError(t, err)
	assert.Equal(t, "Root", me.Name)

	_, err = svc.Me(ctx, db, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestListUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc, _ := newUsers()
	for _, e := range []string{"ann@x.com", "bob@x.com", "anna@y.com"} {
		_, err := svc.Register(ctx, db, creds(e, "pw"))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, db, "ann", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "ann@x.com", page.Items[0].Email)

	page, err = svc.List(ctx, db, "", 2, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	page, err = svc.List(ctx, db, "zzz", 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/storefront/internal/auth/application"
	"github.com/wyfcoding/storefront/internal/auth/infrastructure/client"
	userapp "github.com/wyfcoding/storefront/internal/user/application"
	userdomain "github.com/wyfcoding/storefront/internal/user/domain"
	userpersistence "github.com/wyfcoding/storefront/internal/user/infrastructure/persistence"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*application.AuthService, *application.TokenService, *userapp.AccountService) {
	t.Helper()
	database := dbtest.Open(t, userpersistence.Models()...)
	accounts := userapp.NewAccountService(database, userpersistence.NewUserRepository(database.DB), bcrypt.MinCost)
	tokens, _ := newTokenService(t)
	return application.NewAuthService(client.NewUserClient(accounts), tokens), tokens, accounts
}

func TestRefreshAfterDemotion(t *testing.T) {
	svc, tokens, accounts := newAuthService(t)
	ctx := context.Background()
	u, err := accounts.EnsureStaff(ctx, "admin@example.com", "pw-123456", "Admin")
	require.NoError(t, err)

	login, err := svc.Login(ctx, "admin@example.com", "pw-123456")
	require.NoError(t, err)
	assert.True(t, login.User.IsStaff)

	require.NoError(t, accounts.SetStaff(ctx, u.ID, false))

	access, err := svc.Refresh(ctx, login.Tokens.Refresh)
	require.NoError(t, err)
	p, err := tokens.VerifyAccess(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.False(t, p.IsStaff, "refreshed token carries the current staff flag")
}

func TestRefreshAfterDeactivation(t *testing.T) {
	svc, _, accounts := newAuthService(t)
	ctx := context.Background()
	u, err := accounts.EnsureStaff(ctx, "admin@example.com", "pw-123456", "Admin")
	require.NoError(t, err)

	login, err := svc.Login(ctx, "admin@example.com", "pw-123456")
	require.NoError(t, err)

	require.NoError(t, accounts.SetActive(ctx, u.ID, false))

	_, err = svc.Refresh(ctx, login.Tokens.Refresh)
	assert.True(t, errors.Is(err, userdomain.ErrUserDisabled), "got %v", err)

	_, err = svc.CurrentUser(ctx, u.ID)
	assert.True(t, errors.Is(err, userdomain.ErrUserDisabled))

	require.NoError(t, accounts.SetActive(ctx, u.ID, true))
	_, err = svc.Refresh(ctx, login.Tokens.Refresh)
	assert.NoError(t, err)
}

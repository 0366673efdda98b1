package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/storefront/internal/auth/application"
	"github.com/wyfcoding/storefront/internal/auth/domain"
	"github.com/wyfcoding/storefront/internal/auth/infrastructure/persistence"
	"github.com/wyfcoding/storefront/pkg/cache"
)

var asha = domain.Identity{ID: 7, Username: "asha@example.com", Email: "asha@example.com", FirstName: "Asha", LastName: "Rao"}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTokenService(t *testing.T) (*application.TokenService, *fixedClock) {
	t.Helper()
	lc, err := cache.NewLocal(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lc.Close() })

	clock := &fixedClock{t: time.Now().Truncate(time.Second)}
	svc := application.NewTokenService(application.TokenConfig{Secret: "test-secret", Issuer: "storefront"},
		persistence.NewRevocationRepository(lc)).WithClock(clock.now)
	return svc, clock
}

func TestIssueAndVerifyAccess(t *testing.T) {
	svc, clock := newTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(asha)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	p, err := svc.VerifyAccess(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.UserID)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, "Asha", p.FirstName)
	assert.False(t, p.IsStaff)
	assert.NotEmpty(t, p.TokenID)

	claims, err := svc.Verify(ctx, pair.Access, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "storefront", claims.Issuer)
	assert.True(t, clock.t.Add(application.DefaultAccessTTL).Equal(claims.ExpiresAt.Time))

	_, err = svc.VerifyAccess(ctx, pair.Refresh)
	assert.True(t, errors.Is(err, domain.ErrWrongTokenType), "refresh token is not an access token")

	clock.t = clock.t.Add(application.DefaultAccessTTL + time.Second)
	_, err = svc.VerifyAccess(ctx, pair.Access)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	svc, clock := newTokenService(t)
	ctx := context.Background()

	other := application.NewTokenService(application.TokenConfig{Secret: "other-secret"}, nil).WithClock(clock.now)
	pair, err := other.Issue(asha)
	require.NoError(t, err)
	_, err = svc.VerifyAccess(ctx, pair.Access)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, domain.Claims{
		Type:             domain.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyAccess(ctx, unsigned)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))

	_, err = svc.VerifyAccess(ctx, "not-a-token")
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

// lookupFrom 以内存中的身份表模拟账户读取
func lookupFrom(ids ...domain.Identity) application.IdentityLookup {
	return func(_ context.Context, userID uint) (*domain.Identity, error) {
		for i := range ids {
			if ids[i].ID == userID {
				return &ids[i], nil
			}
		}
		return nil, errors.New("user not found")
	}
}

func TestRefresh(t *testing.T) {
	svc, clock := newTokenService(t)
	ctx := context.Background()
	admin := domain.Identity{ID: 1, Username: "admin@example.com", IsStaff: true}

	pair, err := svc.Issue(admin)
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	_, err = svc.VerifyAccess(ctx, pair.Access)
	require.Error(t, err)

	access, err := svc.Refresh(ctx, pair.Refresh, lookupFrom(admin))
	require.NoError(t, err)
	p, err := svc.VerifyAccess(ctx, access)
	require.NoError(t, err)
	assert.True(t, p.IsStaff)

	_, err = svc.Refresh(ctx, access, lookupFrom(admin))
	assert.True(t, errors.Is(err, domain.ErrWrongTokenType))
}

func TestRefreshUsesCurrentIdentity(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(domain.Identity{ID: 1, Username: "admin@example.com", IsStaff: true})
	require.NoError(t, err)

	demoted := domain.Identity{ID: 1, Username: "admin@example.com", FirstName: "Former"}
	access, err := svc.Refresh(ctx, pair.Refresh, lookupFrom(demoted))
	require.NoError(t, err)
	p, err := svc.VerifyAccess(ctx, access)
	require.NoError(t, err)
	assert.False(t, p.IsStaff)
	assert.Equal(t, "Former", p.FirstName)

	_, err = svc.Refresh(ctx, pair.Refresh, lookupFrom())
	assert.Error(t, err, "deleted or disabled accounts cannot refresh")
}

func TestRevoke(t *testing.T) {
	svc, _ := newTokenService(t)
	ctx := context.Background()

	pair, err := svc.Issue(asha)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.Access))
	_, err = svc.VerifyAccess(ctx, pair.Access)
	assert.True(t, errors.Is(err, domain.ErrTokenRevoked))

	_, err = svc.Refresh(ctx, pair.Refresh, lookupFrom(asha))
	require.NoError(t, err, "revoking the access token leaves the refresh token valid")

	require.NoError(t, svc.Revoke(ctx, pair.Refresh))
	_, err = svc.Refresh(ctx, pair.Refresh, lookupFrom(asha))
	assert.True(t, errors.Is(err, domain.ErrTokenRevoked))

	assert.NoError(t, svc.Revoke(ctx, "garbage"))
	assert.NoError(t, svc.Revoke(ctx, pair.Access), "revoking twice is a no-op")
}

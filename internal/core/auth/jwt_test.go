package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-api/internal/domain"
)

func TestIssueParseRoundTrip(t *testing.T) {
	j := NewJWTer("s3cret", "shop-api", time.Hour)

	tok, err := j.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), c.UID)
	assert.Equal(t, "shop-api", c.Issuer)
}

func TestParseRejectsExpired(t *testing.T) {
	j := NewJWTer("s3cret", "shop-api", time.Minute)
	issued := time.Now().Add(-2 * time.Hour)
	j.now = func() time.Time { return issued }
	tok, err := j.Issue(1)
	require.NoError(t, err)

	j.now = nil
	_, err = j.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	j := NewJWTer("s3cret", "shop-api", time.Hour)
	other := NewJWTer("different", "shop-api", time.Hour)
	tok, err := other.Issue(1)
	require.NoError(t, err)

	_, err = j.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = j.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	wrongIssuer := NewJWTer("s3cret", "someone-else", time.Hour)
	tok, err = wrongIssuer.Issue(1)
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	j := NewJWTer("s3cret", "shop-api", time.Hour)
	tok, err := j.Issue(0)
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIdentity(t *testing.T) {
	id := IdentityOf(&domain.User{ID: 3, Email: "a@x.com", Role: domain.RoleAdmin})
	assert.True(t, id.IsAdmin())
	assert.False(t, (&Identity{Role: domain.RoleUser}).IsAdmin())
	var nilID *Identity
	assert.False(t, nilID.IsAdmin())
}

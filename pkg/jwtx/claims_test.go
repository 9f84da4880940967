package jwtx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/jwtx"
)

func TestClaims_Check(t *testing.T) {
	t.Parallel()

	base := jwtx.NewAccessClaims("user-1", "session-1", "moderator",
		exampleIssuer, []string{exampleAudience, "admin-api"}, epoch, epoch.Add(time.Minute))

	tests := []struct {
		name     string
		mutate   func(*jwtx.Claims)
		issuer   string
		audience []string
		want     error
	}{
		{name: "matching", issuer: exampleIssuer, audience: []string{"admin-api"}},
		{name: "nothing enforced"},
		{name: "wrong issuer", issuer: "https://other", want: jwtx.ErrIssuer},
		{name: "no shared audience", audience: []string{"nope", "other"}, want: jwtx.ErrAudience},
		{name: "missing sid", mutate: func(c *jwtx.Claims) { c.SID = "" }, want: jwtx.ErrInvalidClaim},
		{name: "missing role", mutate: func(c *jwtx.Claims) { c.Role = "" }, want: jwtx.ErrInvalidClaim},
		{name: "missing iat", mutate: func(c *jwtx.Claims) { c.IssuedAt = nil }, want: jwtx.ErrInvalidClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			err := c.Check(tt.issuer, tt.audience)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewJTI_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 64)
	for range 64 {
		id := jwtx.NewJTI()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

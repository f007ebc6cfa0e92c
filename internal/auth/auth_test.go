package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenSpec(t *testing.T) {
	tokens := ParseTokenSpec("user-token=user-1:user, admin-token=admin-1:admin,broken,=x")

	require.Len(t, tokens, 2)
	assert.Equal(t, Identity{UserID: "user-1", Role: RoleUser}, tokens["user-token"])
	assert.Equal(t, Identity{UserID: "admin-1", Role: RoleAdmin}, tokens["admin-token"])
}

func TestParseTokenSpecDefaultsToUserRole(t *testing.T) {
	tokens := ParseTokenSpec("t1=u1,t2=u2:superuser")

	assert.Equal(t, RoleUser, tokens["t1"].Role)
	// unknown roles degrade to user, never admin
	assert.Equal(t, RoleUser, tokens["t2"].Role)
}

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier(map[string]Identity{
		"good": {UserID: "u1", Role: RoleUser},
	})
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)

	_, err = v.Verify(ctx, "bad")
	assert.Error(t, err)
}

func TestCanAccess(t *testing.T) {
	user := Identity{UserID: "u1", Role: RoleUser}
	admin := Identity{UserID: "a1", Role: RoleAdmin}

	assert.True(t, user.CanAccess("u1"))
	assert.False(t, user.CanAccess("u2"))
	assert.True(t, admin.CanAccess("u2"))
	assert.True(t, admin.IsAdmin())
	assert.False(t, user.IsAdmin())
}

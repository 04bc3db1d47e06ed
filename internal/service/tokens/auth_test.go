package tokens

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJWT(t *testing.T) {
	key := []byte(gofakeit.Password(true, true, true, false, false, 32))
	id := gofakeit.UUID()

	token, err := GenerateUserJWT(id, domain.RoleAdmin, time.Hour, key)
	require.NoError(t, err)

	claims, err := ValidateUserJWT(token, key)
	require.NoError(t, err)
	assert.Equal(t, id, claims.ID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = ValidateUserJWT(token, []byte("other key"))
	require.Error(t, err)
}

func TestUserJWT_Expired(t *testing.T) {
	key := []byte("secret")
	token, err := GenerateUserJWT("u1", domain.RoleUser, -time.Minute, key)
	require.NoError(t, err)

	_, err = ValidateUserJWT(token, key)
	require.ErrorIs(t, err, ErrTokenExpired)
}

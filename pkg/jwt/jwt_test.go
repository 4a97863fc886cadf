package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	token, err := Generate("secreto", "stockflow-api", Identity{UserID: "u-1", LocationID: "loc-1", Role: "driver"}, 5)
	require.NoError(t, err)

	id, err := Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, "loc-1", id.LocationID)
	assert.Equal(t, "driver", id.Role)
}

func TestParse_Rejects(t *testing.T) {
	token, err := Generate("secreto", "stockflow-api", Identity{UserID: "u-1", Role: "admin"}, 5)
	require.NoError(t, err)

	// Caso 1: firma con otro secreto
	_, err = Parse("otro", token)
	assert.Error(t, err)

	// Caso 2: token expirado
	expired, err := Generate("secreto", "stockflow-api", Identity{UserID: "u-1", Role: "admin"}, -1)
	require.NoError(t, err)
	_, err = Parse("secreto", expired)
	assert.Error(t, err)

	// Caso 3: secreto vacío
	_, err = Generate("", "stockflow-api", Identity{UserID: "u-1", Role: "admin"}, 5)
	assert.Error(t, err)
}

func TestParse_RolVacioSePermite(t *testing.T) {
	token, err := Generate("secreto", "stockflow-api", Identity{UserID: "u-1"}, 5)
	require.NoError(t, err)

	id, err := Parse("secreto", token)
	require.NoError(t, err, "el rol vacío lo resuelve el middleware")
	assert.Empty(t, id.Role)

	// Caso: sin user_id sí es error
	anon, err := Generate("secreto", "stockflow-api", Identity{Role: "admin"}, 5)
	require.NoError(t, err)
	_, err = Parse("secreto", anon)
	assert.Error(t, err)
}

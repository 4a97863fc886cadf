package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver() *Resolver {
	locations := memory.NewLocationRepository()
	locations.AddZone(entity.Zone{ID: "norte", Name: "Norte", ManagerID: "u-zona"})
	locations.AddLocation(entity.Location{ID: "centro", Name: "Centro", ZoneID: "norte", ManagerID: "u-gerente"})
	locations.AddLocation(entity.Location{ID: "aislada", Name: "Sin zona"})

	users := memory.NewUserRepository()
	for _, u := range []entity.User{
		{ID: "u-admin", Role: entity.RoleAdmin, Status: entity.UserStatusActive},
		{ID: "u-admin-baja", Role: entity.RoleAdmin, Status: entity.UserStatusInactive},
		{ID: "u-zona", Role: entity.RoleZoneManager, ZoneID: "norte", Status: entity.UserStatusActive},
		{ID: "u-gerente", Role: entity.RoleLocationManager, LocationID: "centro", Status: entity.UserStatusActive},
		{ID: "u-gerente2", Role: entity.RoleLocationManager, LocationID: "centro", Status: entity.UserStatusActive},
		{ID: "u-cond-norte", Role: entity.RoleDriver, ZoneID: "norte", Status: entity.UserStatusActive},
		{ID: "u-cond-sur", Role: entity.RoleDriver, ZoneID: "sur", Status: entity.UserStatusActive},
		{ID: "u-cond-libre", Role: entity.RoleDriver, Status: entity.UserStatusActive},
	} {
		users.Add(u)
	}
	return NewResolver(locations, users)
}

func ids(list []ports.Recipient) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.UserID)
	}
	return out
}

func TestLocationManagers_SinDuplicados(t *testing.T) {
	r := newResolver()
	got, err := r.LocationManagers(context.Background(), "centro")
	require.NoError(t, err)
	require.Len(t, got, 2, "el gerente asignado no se repite")
	assert.Equal(t, "u-gerente", got[0].UserID, "el gerente asignado va primero")
	assert.Equal(t, "u-gerente2", got[1].UserID)
}

func TestZoneManagers(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	// Caso 1: ubicación con zona
	got, err := r.ZoneManagers(ctx, "centro")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-zona"}, ids(got))

	// Caso 2: sin zona se escala a administradores activos
	got, err = r.ZoneManagers(ctx, "aislada")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-admin"}, ids(got))

	// Caso 3: ubicación inexistente
	_, err = r.ZoneManagers(ctx, "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestEligibleDrivers(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	got, err := r.EligibleDrivers(ctx, "centro")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-cond-norte", "u-cond-libre"}, ids(got), "conductores de la zona y sin zona")

	got, err = r.EligibleDrivers(ctx, "aislada")
	require.NoError(t, err)
	assert.Len(t, got, 3, "sin zona todos los conductores son elegibles")
}

func TestUser(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	u, err := r.User(ctx, "u-zona")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, entity.RoleZoneManager, u.Role)

	u, err = r.User(ctx, "u-admin-baja")
	require.NoError(t, err)
	assert.Nil(t, u, "usuarios inactivos no reciben notificaciones")

	u, err = r.User(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, u)
}

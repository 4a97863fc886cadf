package routing

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// Resolver implementa ports.RoleResolver sobre ubicaciones, zonas y usuarios.
type Resolver struct {
	locations repository.LocationRepository
	users     repository.UserRepository
}

// NewResolver construye el resolvedor de destinatarios.
func NewResolver(locations repository.LocationRepository, users repository.UserRepository) *Resolver {
	return &Resolver{locations: locations, users: users}
}

var _ ports.RoleResolver = (*Resolver)(nil)

// LocationManagers gerente asignado a la ubicación más los usuarios location_manager de esa ubicación.
func (r *Resolver) LocationManagers(ctx context.Context, locationID string) ([]ports.Recipient, error) {
	loc, err := r.location(ctx, locationID)
	if err != nil {
		return nil, err
	}
	set := newRecipientSet()
	if err := r.addUser(ctx, set, loc.ManagerID); err != nil {
		return nil, err
	}
	managers, err := r.users.ListActiveByRole(ctx, entity.RoleLocationManager)
	if err != nil {
		return nil, err
	}
	for _, u := range managers {
		if u.LocationID == locationID {
			set.add(u)
		}
	}
	return set.list(), nil
}

// ZoneManagers gerente de la zona de la ubicación; sin zona o sin gerente, los administradores.
func (r *Resolver) ZoneManagers(ctx context.Context, locationID string) ([]ports.Recipient, error) {
	loc, err := r.location(ctx, locationID)
	if err != nil {
		return nil, err
	}
	set := newRecipientSet()
	if loc.ZoneID != "" {
		zone, err := r.locations.GetZone(ctx, loc.ZoneID)
		if err != nil {
			return nil, err
		}
		if zone != nil {
			if err := r.addUser(ctx, set, zone.ManagerID); err != nil {
				return nil, err
			}
		}
		managers, err := r.users.ListActiveByRole(ctx, entity.RoleZoneManager)
		if err != nil {
			return nil, err
		}
		for _, u := range managers {
			if u.ZoneID == loc.ZoneID {
				set.add(u)
			}
		}
	}
	if len(set.items) == 0 {
		return r.Admins(ctx)
	}
	return set.list(), nil
}

// Admins administradores activos.
func (r *Resolver) Admins(ctx context.Context) ([]ports.Recipient, error) {
	admins, err := r.users.ListActiveByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	set := newRecipientSet()
	for _, u := range admins {
		set.add(u)
	}
	return set.list(), nil
}

// EligibleDrivers conductores de la zona de la ubicación y los que no tienen zona asignada.
// Si la ubicación no tiene zona, todos los conductores activos.
func (r *Resolver) EligibleDrivers(ctx context.Context, locationID string) ([]ports.Recipient, error) {
	loc, err := r.location(ctx, locationID)
	if err != nil {
		return nil, err
	}
	drivers, err := r.users.ListActiveByRole(ctx, entity.RoleDriver)
	if err != nil {
		return nil, err
	}
	set := newRecipientSet()
	for _, u := range drivers {
		if loc.ZoneID == "" || u.ZoneID == "" || u.ZoneID == loc.ZoneID {
			set.add(u)
		}
	}
	return set.list(), nil
}

// User destinatario por id; nil si no existe o está inactivo.
func (r *Resolver) User(ctx context.Context, userID string) (*ports.Recipient, error) {
	if userID == "" {
		return nil, nil
	}
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Status != entity.UserStatusActive {
		return nil, nil
	}
	rc := toRecipient(u)
	return &rc, nil
}

func (r *Resolver) location(ctx context.Context, id string) (*entity.Location, error) {
	loc, err := r.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.ErrNotFound
	}
	return loc, nil
}

func (r *Resolver) addUser(ctx context.Context, set *recipientSet, userID string) error {
	if userID == "" {
		return nil
	}
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u != nil && u.Status == entity.UserStatusActive {
		set.add(u)
	}
	return nil
}

func toRecipient(u *entity.User) ports.Recipient {
	return ports.Recipient{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// recipientSet conserva el orden de inserción y descarta repetidos.
type recipientSet struct {
	seen  map[string]bool
	items []ports.Recipient
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: map[string]bool{}}
}

func (s *recipientSet) add(u *entity.User) {
	if s.seen[u.ID] {
		return
	}
	s.seen[u.ID] = true
	s.items = append(s.items, toRecipient(u))
}

func (s *recipientSet) list() []ports.Recipient {
	if s.items == nil {
		return []ports.Recipient{}
	}
	return s.items
}

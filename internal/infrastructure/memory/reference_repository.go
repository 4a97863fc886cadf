package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var (
	_ repository.LocationRepository = (*LocationRepository)(nil)
	_ repository.ItemRepository     = (*ItemRepository)(nil)
	_ repository.UserRepository     = (*UserRepository)(nil)
)

// LocationRepository ubicaciones y zonas en memoria.
type LocationRepository struct {
	mu        sync.RWMutex
	locations map[string]entity.Location
	zones     map[string]entity.Zone
}

// NewLocationRepository construye el repositorio vacío.
func NewLocationRepository() *LocationRepository {
	return &LocationRepository{locations: map[string]entity.Location{}, zones: map[string]entity.Zone{}}
}

// AddLocation carga una ubicación.
func (r *LocationRepository) AddLocation(l entity.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[l.ID] = l
}

// AddZone carga una zona.
func (r *LocationRepository) AddZone(z entity.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[z.ID] = z
}

func (r *LocationRepository) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *LocationRepository) GetZone(_ context.Context, id string) (*entity.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return nil, nil
	}
	return &z, nil
}

func (r *LocationRepository) List(_ context.Context) ([]*entity.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*entity.Location, 0, len(r.locations))
	for _, l := range r.locations {
		l := l
		list = append(list, &l)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ItemRepository artículos en memoria.
type ItemRepository struct {
	mu    sync.RWMutex
	items map[string]entity.Item
}

// NewItemRepository construye el repositorio vacío.
func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: map[string]entity.Item{}}
}

// Add carga un artículo.
func (r *ItemRepository) Add(i entity.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[i.ID] = i
}

func (r *ItemRepository) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

// UserRepository usuarios en memoria.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

// NewUserRepository construye el repositorio vacío.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]entity.User{}}
}

// Add carga un usuario.
func (r *UserRepository) Add(u entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) ListActiveByRole(_ context.Context, role string) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.User
	for _, u := range r.users {
		if u.Role == role && u.Status == entity.UserStatusActive {
			u := u
			list = append(list, &u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

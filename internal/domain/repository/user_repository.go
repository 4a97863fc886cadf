package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// UserRepository puerto de lectura de usuarios para el ruteo de notificaciones.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListActiveByRole(ctx context.Context, role string) ([]*entity.User, error)
}

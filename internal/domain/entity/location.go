package entity

import "time"

// Location ubicación (tienda o bodega) que mantiene inventario. ZoneID vacío = sin zona.
type Location struct {
	ID        string
	Name      string
	Address   string
	ZoneID    string
	ManagerID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Zone agrupa ubicaciones bajo un gerente de zona.
type Zone struct {
	ID        string
	Name      string
	ManagerID string
}

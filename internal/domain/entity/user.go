package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin           = "admin"
	RoleZoneManager     = "zone_manager"
	RoleLocationManager = "location_manager"
	RoleDriver          = "driver"
	RoleStaff           = "staff"
)

// Estados de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User usuario del sistema. ZoneID y LocationID son opcionales según el rol.
type User struct {
	ID         string
	Email      string
	Name       string
	Role       string
	ZoneID     string
	LocationID string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidRole indica si role es uno de los roles conocidos.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleZoneManager, RoleLocationManager, RoleDriver, RoleStaff:
		return true
	}
	return false
}

// IsPrivileged indica si el rol puede forzar correcciones de stock.
func IsPrivileged(role string) bool {
	return role == RoleAdmin
}

// IsManager indica si el rol es de gestión (puede cancelar solicitudes ajenas).
func IsManager(role string) bool {
	switch role {
	case RoleAdmin, RoleZoneManager, RoleLocationManager:
		return true
	}
	return false
}

// Actor quien ejecuta una operación (extraído del token).
type Actor struct {
	ID   string
	Role string
}

package entity

// Unidad base del inventario.
const UnitKg = "kg"

// Item artículo inventariable. Todas las cantidades del libro están en kg.
type Item struct {
	ID   string
	SKU  string
	Name string
	Unit string
}

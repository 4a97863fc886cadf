package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/postgres"
)

// WriteSQL escribe el catálogo como upserts idempotentes, en orden de dependencias.
func (c *Catalog) WriteSQL(w io.Writer) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de referencia de stockflow (generado)\n\n")

	b.WriteString("-- 1. Zonas\n")
	for _, z := range c.Zones {
		fmt.Fprintf(&b, "INSERT INTO zones (id, name, manager_id) VALUES ('%s', '%s', %s)\n", z.ID, escapeSQL(z.Name), quoteOrNull(z.ManagerID))
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, manager_id = EXCLUDED.manager_id;\n")
	}

	b.WriteString("\n-- 2. Ubicaciones\n")
	for _, l := range c.Locations {
		fmt.Fprintf(&b, "INSERT INTO locations (id, name, address, zone_id, manager_id) VALUES ('%s', '%s', '%s', %s, %s)\n",
			l.ID, escapeSQL(l.Name), escapeSQL(l.Address), quoteOrNull(l.ZoneID), quoteOrNull(l.ManagerID))
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, zone_id = EXCLUDED.zone_id, manager_id = EXCLUDED.manager_id, updated_at = now();\n")
	}

	b.WriteString("\n-- 3. Artículos\n")
	for _, it := range c.Items {
		fmt.Fprintf(&b, "INSERT INTO items (id, sku, name, unit) VALUES ('%s', '%s', '%s', '%s')\n", it.ID, escapeSQL(it.SKU), escapeSQL(it.Name), it.Unit)
		b.WriteString("ON CONFLICT (id) DO UPDATE SET sku = EXCLUDED.sku, name = EXCLUDED.name;\n")
	}

	b.WriteString("\n-- 4. Usuarios\n")
	for _, u := range c.Users {
		fmt.Fprintf(&b, "INSERT INTO users (id, email, name, role, zone_id, location_id, status) VALUES ('%s', '%s', '%s', '%s', %s, %s, '%s')\n",
			escapeSQL(u.ID), escapeSQL(emailOf(u)), escapeSQL(u.Name), u.Role, quoteOrNull(u.ZoneID), quoteOrNull(u.LocationID), u.Status)
		b.WriteString("ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role, zone_id = EXCLUDED.zone_id, location_id = EXCLUDED.location_id, updated_at = now();\n")
	}

	b.WriteString("\n-- 5. Políticas de reorden\n")
	for _, p := range c.Policies {
		fixed := "NULL"
		if p.FixedOrderBags != nil {
			fixed = fmt.Sprintf("%d", *p.FixedOrderBags)
		}
		fmt.Fprintf(&b, "INSERT INTO reorder_policies (location_id, item_id, safety_stock_qty, reorder_point_qty, target_days_of_cover, fixed_order_bags, auto_reorder_enabled) VALUES ('%s', '%s', %s, %s, %d, %s, %t)\n",
			p.LocationID, p.ItemID, p.SafetyStockQty.String(), p.ReorderPointQty.String(), p.TargetDaysOfCover, fixed, p.AutoReorderEnabled)
		b.WriteString("ON CONFLICT (location_id, item_id) DO UPDATE SET safety_stock_qty = EXCLUDED.safety_stock_qty, reorder_point_qty = EXCLUDED.reorder_point_qty, target_days_of_cover = EXCLUDED.target_days_of_cover, fixed_order_bags = EXCLUDED.fixed_order_bags, auto_reorder_enabled = EXCLUDED.auto_reorder_enabled, updated_at = now();\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// TxRunner lo que ApplySQL necesita para aplicar el catálogo de una sola vez.
type TxRunner interface {
	Run(ctx context.Context, fn func(q postgres.Querier) error) error
}

// ApplySQL ejecuta el catálogo contra PostgreSQL en una transacción: un catálogo a medias dejaría
// políticas apuntando a ubicaciones que no existen.
func (c *Catalog) ApplySQL(ctx context.Context, tx TxRunner) error {
	var buf bytes.Buffer
	if err := c.WriteSQL(&buf); err != nil {
		return err
	}
	return tx.Run(ctx, func(q postgres.Querier) error {
		if _, err := q.Exec(ctx, buf.String()); err != nil {
			return fmt.Errorf("aplicar catálogo: %w", err)
		}
		return nil
	})
}

// MemoryStores repositorios en memoria que recibe ApplyMemory.
type MemoryStores struct {
	Locations *memory.LocationRepository
	Items     *memory.ItemRepository
	Users     *memory.UserRepository
	Policies  *memory.ReorderPolicyRepository
}

// ApplyMemory carga el catálogo en los repositorios en memoria.
func (c *Catalog) ApplyMemory(ctx context.Context, s MemoryStores) error {
	for _, z := range c.Zones {
		s.Locations.AddZone(z)
	}
	for _, l := range c.Locations {
		s.Locations.AddLocation(l)
	}
	for _, it := range c.Items {
		s.Items.Add(it)
	}
	for _, u := range c.Users {
		s.Users.Add(u)
	}
	for i := range c.Policies {
		p := c.Policies[i]
		if err := s.Policies.Upsert(ctx, &p); err != nil {
			return fmt.Errorf("política %s/%s: %w", p.LocationID, p.ItemID, err)
		}
	}
	return nil
}

// emailOf la columna email es única y obligatoria; sin email se usa uno sintético por id.
func emailOf(u entity.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID + "@stockflow.local"
}

func quoteOrNull(s string) string {
	if s == "" {
		return "NULL"
	}
	return "'" + escapeSQL(s) + "'"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

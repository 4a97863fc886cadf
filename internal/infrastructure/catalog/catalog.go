// Package catalog lee el catálogo de datos de referencia (zonas, ubicaciones, artículos, usuarios y
// políticas de reorden) desde XML. Los archivos exportados por los sistemas de tienda suelen venir en
// ISO-8859-1, así que el decodificador acepta ese charset.
//
// Las claves del XML son legibles ("tienda-centro"); los IDs de ubicaciones, zonas y artículos se
// derivan de ellas como UUID v5, así el mismo catálogo produce siempre los mismos IDs.
package catalog

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://stockflow/catalog"))

type zoneNode struct{ Key, Name, Manager string }

type locationNode struct{ Key, Name, Address, Zone, Manager string }

type itemNode struct{ Key, SKU, Name string }

type userNode struct{ ID, Email, Name, Role, Zone, Location string }

type policyNode struct {
	Location, Item, Safety, Reorder string
	Days, FixedBags                 int
	AutoReorder                     bool
}

type document struct {
	Zones     []zoneNode
	Locations []locationNode
	Items     []itemNode
	Users     []userNode
	Policies  []policyNode
}

// readDocument recorre los hijos directos de la raíz; los elementos desconocidos se ignoran.
func readDocument(r io.Reader) (*document, error) {
	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") || strings.EqualFold(charset, "latin1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, err
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("documento sin elemento raíz")
	}

	doc := &document{}
	for _, el := range root.SelectElements("zona") {
		doc.Zones = append(doc.Zones, zoneNode{
			Key:     el.SelectAttrValue("clave", ""),
			Name:    el.SelectAttrValue("nombre", ""),
			Manager: el.SelectAttrValue("gerente", ""),
		})
	}
	for _, el := range root.SelectElements("ubicacion") {
		doc.Locations = append(doc.Locations, locationNode{
			Key:     el.SelectAttrValue("clave", ""),
			Name:    el.SelectAttrValue("nombre", ""),
			Address: el.SelectAttrValue("direccion", ""),
			Zone:    el.SelectAttrValue("zona", ""),
			Manager: el.SelectAttrValue("gerente", ""),
		})
	}
	for _, el := range root.SelectElements("articulo") {
		doc.Items = append(doc.Items, itemNode{
			Key:  el.SelectAttrValue("clave", ""),
			SKU:  el.SelectAttrValue("sku", ""),
			Name: el.SelectAttrValue("nombre", ""),
		})
	}
	for _, el := range root.SelectElements("usuario") {
		doc.Users = append(doc.Users, userNode{
			ID:       el.SelectAttrValue("id", ""),
			Email:    el.SelectAttrValue("email", ""),
			Name:     el.SelectAttrValue("nombre", ""),
			Role:     el.SelectAttrValue("rol", ""),
			Zone:     el.SelectAttrValue("zona", ""),
			Location: el.SelectAttrValue("ubicacion", ""),
		})
	}
	for _, el := range root.SelectElements("politica") {
		p := policyNode{
			Location: el.SelectAttrValue("ubicacion", ""),
			Item:     el.SelectAttrValue("articulo", ""),
			Safety:   el.SelectAttrValue("seguridad", ""),
			Reorder:  el.SelectAttrValue("reorden", ""),
		}
		var err error
		if p.Days, err = intAttr(el, "dias"); err != nil {
			return nil, err
		}
		if p.FixedBags, err = intAttr(el, "bolsas"); err != nil {
			return nil, err
		}
		if v := el.SelectAttrValue("automatico", ""); v != "" {
			if p.AutoReorder, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("política %s/%s: automatico %q inválido", p.Location, p.Item, v)
			}
		}
		doc.Policies = append(doc.Policies, p)
	}
	return doc, nil
}

func intAttr(el *etree.Element, name string) (int, error) {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("atributo %s=%q no es un entero", name, v)
	}
	return n, nil
}

// Catalog datos de referencia ya convertidos a entidades.
type Catalog struct {
	Zones     []entity.Zone
	Locations []entity.Location
	Items     []entity.Item
	Users     []entity.User
	Policies  []entity.ReorderPolicy
}

// ID deriva el UUID de una clave del catálogo. kind separa espacios (zone, location, item).
func ID(kind, key string) string {
	if key == "" {
		return ""
	}
	return uuid.NewSHA1(namespace, []byte(kind+":"+key)).String()
}

// LoadFile abre y decodifica el catálogo.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodifica el XML y valida las referencias cruzadas.
func Load(r io.Reader) (*Catalog, error) {
	doc, err := readDocument(r)
	if err != nil {
		return nil, fmt.Errorf("decodificar catálogo: %w", err)
	}

	c := &Catalog{}
	zones := map[string]bool{}
	for _, z := range doc.Zones {
		key := strings.TrimSpace(z.Key)
		if key == "" || z.Name == "" {
			return nil, fmt.Errorf("zona sin clave o nombre")
		}
		zones[key] = true
		c.Zones = append(c.Zones, entity.Zone{ID: ID("zone", key), Name: strings.TrimSpace(z.Name), ManagerID: z.Manager})
	}

	locations := map[string]bool{}
	for _, l := range doc.Locations {
		key := strings.TrimSpace(l.Key)
		if key == "" || l.Name == "" {
			return nil, fmt.Errorf("ubicación sin clave o nombre")
		}
		if l.Zone != "" && !zones[l.Zone] {
			return nil, fmt.Errorf("ubicación %s: zona %q no declarada", key, l.Zone)
		}
		locations[key] = true
		c.Locations = append(c.Locations, entity.Location{
			ID:        ID("location", key),
			Name:      strings.TrimSpace(l.Name),
			Address:   strings.TrimSpace(l.Address),
			ZoneID:    ID("zone", l.Zone),
			ManagerID: l.Manager,
		})
	}

	items := map[string]bool{}
	for _, it := range doc.Items {
		key := strings.TrimSpace(it.Key)
		if key == "" || it.SKU == "" {
			return nil, fmt.Errorf("artículo sin clave o sku")
		}
		items[key] = true
		c.Items = append(c.Items, entity.Item{ID: ID("item", key), SKU: it.SKU, Name: strings.TrimSpace(it.Name), Unit: entity.UnitKg})
	}

	for _, u := range doc.Users {
		if u.ID == "" || u.Role == "" {
			return nil, fmt.Errorf("usuario sin id o rol")
		}
		if !entity.ValidRole(u.Role) {
			return nil, fmt.Errorf("usuario %s: rol %q desconocido", u.ID, u.Role)
		}
		if u.Location != "" && !locations[u.Location] {
			return nil, fmt.Errorf("usuario %s: ubicación %q no declarada", u.ID, u.Location)
		}
		c.Users = append(c.Users, entity.User{
			ID:         u.ID,
			Email:      u.Email,
			Name:       strings.TrimSpace(u.Name),
			Role:       u.Role,
			ZoneID:     ID("zone", u.Zone),
			LocationID: ID("location", u.Location),
			Status:     entity.UserStatusActive,
		})
	}

	for _, p := range doc.Policies {
		if !locations[p.Location] || !items[p.Item] {
			return nil, fmt.Errorf("política %s/%s: ubicación o artículo no declarado", p.Location, p.Item)
		}
		safety, err := decimal.NewFromString(p.Safety)
		if err != nil {
			return nil, fmt.Errorf("política %s/%s: seguridad inválida: %w", p.Location, p.Item, err)
		}
		reorder, err := decimal.NewFromString(p.Reorder)
		if err != nil {
			return nil, fmt.Errorf("política %s/%s: reorden inválido: %w", p.Location, p.Item, err)
		}
		if reorder.LessThan(safety) {
			return nil, fmt.Errorf("política %s/%s: el punto de reorden es menor que el stock de seguridad", p.Location, p.Item)
		}
		policy := entity.ReorderPolicy{
			LocationID:         ID("location", p.Location),
			ItemID:             ID("item", p.Item),
			SafetyStockQty:     safety,
			ReorderPointQty:    reorder,
			TargetDaysOfCover:  p.Days,
			AutoReorderEnabled: p.AutoReorder,
		}
		if p.FixedBags > 0 {
			bags := p.FixedBags
			policy.FixedOrderBags = &bags
		}
		c.Policies = append(c.Policies, policy)
	}
	return c, nil
}

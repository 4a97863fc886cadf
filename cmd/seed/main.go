// seed genera el script SQL del catálogo de referencia (zonas, ubicaciones, artículos, usuarios y
// políticas de reorden) a partir de un XML exportado por el sistema de tiendas.
//
// Uso: go run ./cmd/seed [ruta/catalogo.xml] [salida.sql]
// Por defecto lee catalogo.xml del directorio actual y escribe
// internal/infrastructure/postgres/seed.sql.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/stockflow-api/internal/infrastructure/catalog"
)

func main() {
	xmlPath := "catalogo.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	c, err := catalog.LoadFile(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seed.sql")
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := c.WriteSQL(out); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d zonas, %d ubicaciones, %d artículos, %d usuarios, %d políticas\n",
		outPath, len(c.Zones), len(c.Locations), len(c.Items), len(c.Users), len(c.Policies))
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

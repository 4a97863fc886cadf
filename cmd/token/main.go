// token firma un JWT de servicio con JWT_SECRET para operar la API sin proveedor de identidad
// (cron externo, pruebas manuales).
//
// Uso: go run ./cmd/token -user u-admin -role admin [-location loc-123]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/jhoicas/stockflow-api/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "id del usuario")
	role := flag.String("role", entity.RoleAdmin, "rol del token")
	locationID := flag.String("location", "", "ubicación asignada (gerente de ubicación, personal)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "falta -user")
		os.Exit(1)
	}
	if !entity.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "rol inválido: %s\n", *role)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET no configurado")
		os.Exit(1)
	}

	token, err := jwt.Generate(cfg.JWT.Secret, cfg.JWT.Issuer, jwt.Identity{
		UserID:     *userID,
		LocationID: *locationID,
		Role:       *role,
	}, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Firmar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

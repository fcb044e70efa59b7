// devtoken emite un JWT firmado con JWT_SECRET para probar la API en desarrollo.
//
// Uso: go run ./cmd/devtoken -user u-1 -name "Ana Pérez" -role tecnico
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-ti/pkg/config"
	"github.com/jhoicas/inventario-ti/pkg/jwt"
)

func main() {
	userID := flag.String("user", "dev", "id del usuario (claim user_id)")
	name := flag.String("name", "", "nombre que queda como actor en el libro")
	role := flag.String("role", jwt.RoleTechnician, "admin | tecnico | consulta")
	minutes := flag.Int("exp", 0, "minutos de validez; 0 usa JWT_EXPIRATION_MINUTES")
	flag.Parse()

	switch *role {
	case jwt.RoleAdmin, jwt.RoleTechnician, jwt.RoleViewer:
	default:
		fmt.Fprintf(os.Stderr, "rol desconocido %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET es requerido")
		os.Exit(1)
	}
	exp := cfg.JWT.Expiration
	if *minutes > 0 {
		exp = *minutes
	}

	token, err := jwt.Generate(cfg.JWT.Secret, jwt.Identity{UserID: *userID, Name: *name, Role: *role}, cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

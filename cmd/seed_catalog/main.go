// seed_catalog carga el catálogo de productos desde un CSV al almacenamiento configurado
// (STORE_DRIVER=sqlite o postgres).
//
// Uso: go run ./cmd/seed_catalog [-latin1] [-sep ';'] catalogo.csv
// Columnas: sku, nombre, categoria, serial (si/no), minimo, ideal, descripcion (opcional).
// La primera fila es encabezado. Los SKU ya existentes se omiten; cualquier otro error
// revierte la carga.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-ti/internal/application/dto"
	"github.com/jhoicas/inventario-ti/internal/application/usecase"
	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/sqlite"
	"github.com/jhoicas/inventario-ti/pkg/config"
	"github.com/jhoicas/inventario-ti/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "el archivo está en ISO-8859-1 (exportado desde Excel)")
	sep := flag.String("sep", ";", "separador de columnas")
	flag.Parse()
	if flag.NArg() != 1 || len(*sep) != 1 {
		fmt.Fprintln(os.Stderr, "uso: seed_catalog [-latin1] [-sep ';'] catalogo.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir CSV")
	}
	defer f.Close()

	var r io.Reader = f
	if *latin1 {
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	rows, err := parseCatalog(r, rune((*sep)[0]))
	if err != nil {
		log.Fatal().Err(err).Msg("leer catálogo")
	}

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("abrir almacenamiento")
	}
	defer closeRepo()

	res, err := load(ctx, repo, rows, log)
	if err != nil {
		log.Fatal().Err(err).Msg("carga revertida")
	}
	log.Info().
		Int("creados", res.created).
		Int("omitidos", res.skipped).
		Msg("catálogo cargado")
}

// catalogStore catálogo con soporte de transacción.
type catalogStore interface {
	repository.ProductRepository
	repository.CatalogTxRunner
}

type loadResult struct {
	created, skipped int
}

// load crea todas las filas en una sola transacción. Un SKU existente se omite;
// cualquier otro error revierte la carga completa.
func load(ctx context.Context, st catalogStore, rows []dto.CreateProductRequest, log *logger.Logger) (loadResult, error) {
	var res loadResult
	err := st.RunCatalog(ctx, func(repo repository.ProductRepository) error {
		res = loadResult{}
		uc := usecase.NewProductUseCase(repo)
		for _, row := range rows {
			_, err := uc.Create(ctx, row)
			switch {
			case err == nil:
				res.created++
			case errors.Is(err, domain.ErrDuplicate):
				res.skipped++
				log.Debug().Str("sku", row.SKU).Msg("sku existente, se omite")
			default:
				return fmt.Errorf("sku %s: %w", row.SKU, err)
			}
		}
		return nil
	})
	return res, err
}

// parseCatalog lee el CSV y valida cada fila; los errores indican la línea del archivo.
func parseCatalog(r io.Reader, sep rune) ([]dto.CreateProductRequest, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("archivo vacío")
	}

	out := make([]dto.CreateProductRequest, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("línea %d: se esperaban al menos 6 columnas, hay %d", line, len(rec))
		}
		tracks, err := parseYesNo(rec[3])
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		minimum, err := parseQuantity(rec[4])
		if err != nil {
			return nil, fmt.Errorf("línea %d: mínimo: %w", line, err)
		}
		ideal, err := parseQuantity(rec[5])
		if err != nil {
			return nil, fmt.Errorf("línea %d: ideal: %w", line, err)
		}
		row := dto.CreateProductRequest{
			SKU:              strings.TrimSpace(rec[0]),
			Name:             strings.TrimSpace(rec[1]),
			CategoryPath:     strings.TrimSpace(rec[2]),
			TracksSerial:     tracks,
			MinimumThreshold: minimum,
			IdealStock:       ideal,
		}
		if len(rec) > 6 {
			row.Description = strings.TrimSpace(rec[6])
		}
		out = append(out, row)
	}
	return out, nil
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "si", "sí", "s", "true", "1", "x":
		return true, nil
	case "no", "n", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("valor de serial no reconocido %q", s)
}

// parseQuantity acepta coma decimal como la exporta Excel en español.
func parseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (catalogStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath, log.Named("migrations"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool, log.Named("migrations")); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("STORE_DRIVER %q no persiste el catálogo; use sqlite o postgres", cfg.Store.Driver)
}

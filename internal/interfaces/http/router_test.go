package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ti/internal/application/dto"
	"github.com/jhoicas/inventario-ti/internal/application/inventory"
	"github.com/jhoicas/inventario-ti/internal/application/usecase"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ti/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/inventario-ti/internal/interfaces/http"
	"github.com/jhoicas/inventario-ti/pkg/logger"
	pkgjwt "github.com/jhoicas/inventario-ti/pkg/jwt"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	store := memory.NewStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	coordinator := undo.New(time.Minute, undo.WithObserver(m.UndoObserver()))
	invUC := inventory.NewUseCase(store, store, lock.NewKeyedMutex(), coordinator, logger.Nop(), inventory.WithMetrics(m))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC:   usecase.NewProductUseCase(store),
		InventoryUC: invUC,
		JWTSecret:   testJWTSecret,
		ServiceName: "inventario-ti",
		Gatherer:    reg,
	})
	return &apiClient{t: t, app: app}
}

func (a *apiClient) do(method, path, role string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(a.t, role))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	return decode[dto.ErrorResponse](t, raw).Code
}

func (a *apiClient) createProduct(sku string, serial bool, minimum, ideal int) string {
	a.t.Helper()
	resp, body := a.do(http.MethodPost, "/api/products", pkgjwt.RoleAdmin, fiber.Map{
		"sku": sku, "name": sku, "category_path": "Computadoras/Notebooks", "tracks_serial": serial,
		"minimum_threshold": minimum, "ideal_stock": ideal,
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[dto.ProductResponse](a.t, body).ID
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_CatalogoSoloAdmin(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(http.MethodPost, "/api/products", pkgjwt.RoleTechnician, fiber.Map{"sku": "X", "name": "X"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	id := api.createProduct("NB-14", true, 2, 5)

	resp, body = api.do(http.MethodPost, "/api/products", pkgjwt.RoleAdmin, fiber.Map{"sku": "nb-14", "name": "Otro"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", errorCode(t, body))

	resp, body = api.do(http.MethodGet, "/api/products/"+id, pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "NB-14", decode[dto.ProductResponse](t, body).SKU)

	resp, body = api.do(http.MethodGet, "/api/products?tracks_serial=true&limit=5", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.ProductListResponse](t, body)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 5, list.Page.Limit)

	resp, body = api.do(http.MethodGet, "/api/products?limit=500", pkgjwt.RoleViewer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, _ = api.do(http.MethodGet, "/api/products/no-existe", pkgjwt.RoleViewer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Comandos y consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_CicloDeVidaPorHTTP(t *testing.T) {
	api := newTestAPI(t)
	id := api.createProduct("NB-14", true, 2, 5)

	resp, body := api.do(http.MethodPost, "/api/inventory/entries", pkgjwt.RoleTechnician, fiber.Map{
		"product_id": id, "serial_numbers": []string{"SN-001", "SN-002"}, "location": "Bodega Central",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	entry := decode[dto.CommandResponse](t, body)
	assert.NotEmpty(t, entry.EventID)
	assert.Equal(t, "m-"+entry.EventID, entry.HistoryKey)

	assignment := fiber.Map{
		"product_id": id, "serial_numbers": []string{"SN-001"},
		"destination": fiber.Map{"kind": "person", "id": "u-ana", "name": "Ana", "location": "Piso 3"},
	}
	resp, body = api.do(http.MethodPost, "/api/inventory/assignments", pkgjwt.RoleTechnician, assignment)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = api.do(http.MethodPost, "/api/inventory/assignments", pkgjwt.RoleTechnician, assignment)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_ALLOCATED", errorCode(t, body))

	resp, body = api.do(http.MethodGet, "/api/assets/"+id+"/SN-001/status", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[dto.StatusResponse](t, body)
	assert.Equal(t, "ASSIGNED", status.Status)
	require.NotNil(t, status.Holder)
	assert.Equal(t, "Ana", status.Holder.Name)

	resp, body = api.do(http.MethodGet, "/api/products/"+id+"/serials", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"SN-002"}, decode[dto.SerialsResponse](t, body).Available)

	resp, body = api.do(http.MethodPost, "/api/inventory/repairs", pkgjwt.RoleTechnician, fiber.Map{
		"product_id": id, "serial_number": "SN-002", "provider": "ServiTec", "problem": "pantalla",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	repair := decode[dto.CommandResponse](t, body)

	resp, body = api.do(http.MethodPost, "/api/inventory/repairs/"+repair.EventID+"/return", pkgjwt.RoleTechnician, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = api.do(http.MethodGet, "/api/assets/"+id+"/SN-002/history?limit=10", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[dto.HistoryResponse](t, body)
	require.Len(t, history.Items, 3)
	assert.Equal(t, "repair_return", history.Items[0].Kind)
	assert.Equal(t, testUserName, history.Items[0].Actor, "el actor sale del token")

	resp, body = api.do(http.MethodGet, "/api/products/"+id+"/stock", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stock := decode[dto.StockLevelResponse](t, body)
	assert.Equal(t, "1", stock.CurrentStock.String())
	assert.Equal(t, "WARNING", stock.Classification)

	resp, body = api.do(http.MethodGet, "/api/inventory/low-stock", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.LowStockResponse](t, body).Items, 1)

	resp, body = api.do(http.MethodGet, "/api/inventory/replenishment", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	suggestions := decode[[]dto.ReplenishmentSuggestionDTO](t, body)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "4", suggestions[0].SuggestedOrder.String())
	assert.Equal(t, 1, suggestions[0].Priority)
}

func TestRouter_ErroresDeComandos(t *testing.T) {
	api := newTestAPI(t)
	cable := api.createProduct("CAB-HDMI", false, 10, 20)

	resp, body := api.do(http.MethodPost, "/api/inventory/entries", pkgjwt.RoleTechnician, fiber.Map{"quantity": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "product_id requerido")
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, body = api.do(http.MethodPost, "/api/inventory/entries", pkgjwt.RoleTechnician, fiber.Map{"product_id": "nada", "quantity": 5})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	resp, _ = api.do(http.MethodPost, "/api/inventory/entries", pkgjwt.RoleTechnician, fiber.Map{"product_id": cable, "quantity": "12.5"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = api.do(http.MethodPost, "/api/inventory/stock-outs", pkgjwt.RoleTechnician, fiber.Map{"product_id": cable, "quantity": 20})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, body))

	resp, body = api.do(http.MethodPost, "/api/inventory/returns", pkgjwt.RoleTechnician, fiber.Map{"product_id": cable, "quantity": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOT_ALLOCATED", errorCode(t, body))

	resp, body = api.do(http.MethodPost, "/api/inventory/decommissions", pkgjwt.RoleTechnician, fiber.Map{"product_id": cable, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, _ = api.do(http.MethodPost, "/api/inventory/stock-outs", pkgjwt.RoleViewer, fiber.Map{"product_id": cable, "quantity": 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "consulta no registra movimientos")

	resp, _ = api.do(http.MethodPost, "/api/inventory/entries", "", fiber.Map{"product_id": cable, "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = api.do(http.MethodGet, "/api/products/"+cable+"/status", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "IN_STOCK", decode[dto.StatusResponse](t, body).Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Deshacer
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_Deshacer(t *testing.T) {
	api := newTestAPI(t)
	id := api.createProduct("NB-14", true, 0, 0)

	resp, body := api.do(http.MethodGet, "/api/inventory/undo", pkgjwt.RoleViewer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOTHING_TO_UNDO", errorCode(t, body))

	_, body = api.do(http.MethodPost, "/api/inventory/entries", pkgjwt.RoleTechnician, fiber.Map{"product_id": id, "serial_numbers": []string{"SN-001"}})
	entry := decode[dto.CommandResponse](t, body)
	_, body = api.do(http.MethodPost, "/api/inventory/assignments", pkgjwt.RoleTechnician, fiber.Map{
		"product_id": id, "serial_numbers": []string{"SN-001"},
		"destination": fiber.Map{"kind": "department", "id": "dep-ti", "name": "TI"},
	})
	assignment := decode[dto.CommandResponse](t, body)

	resp, body = api.do(http.MethodGet, "/api/inventory/undo", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[dto.PendingActionResponse](t, body)
	assert.Equal(t, assignment.UndoID, pending.ID)
	assert.Equal(t, "Asignación de serial SN-001 a TI", pending.Description)

	resp, body = api.do(http.MethodDelete, "/api/inventory/undo/"+entry.UndoID, pkgjwt.RoleTechnician, nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode, "la entrada fue reemplazada por la asignación")
	assert.Equal(t, "EXPIRED_ACTION", errorCode(t, body))

	resp, _ = api.do(http.MethodPost, "/api/inventory/undo", pkgjwt.RoleTechnician, fiber.Map{"id": assignment.UndoID})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = api.do(http.MethodPost, "/api/inventory/undo", pkgjwt.RoleTechnician, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOTHING_TO_UNDO", errorCode(t, body))

	resp, body = api.do(http.MethodGet, "/api/assets/"+id+"/SN-001/status", pkgjwt.RoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "IN_STOCK", decode[dto.StatusResponse](t, body).Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Health y métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_HealthYMetricas(t *testing.T) {
	api := newTestAPI(t)
	id := api.createProduct("NB-14", true, 0, 0)
	api.do(http.MethodPost, "/api/inventory/entries", pkgjwt.RoleTechnician, fiber.Map{"product_id": id, "serial_numbers": []string{"SN-001"}})

	resp, body := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "inventario-ti")

	resp, body = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "inventario_commands_total")
}

func TestRouter_HealthSinAlmacenamiento(t *testing.T) {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		JWTSecret: testJWTSecret,
		Ping:      func(context.Context) error { return errors.New("sin conexión") },
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "sin Gatherer no hay /metrics")
}

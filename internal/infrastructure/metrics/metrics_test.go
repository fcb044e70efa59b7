package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ti/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

func TestMetrics_Registra(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveCommand("assign", "ok", 5*time.Millisecond)
	m.ObserveCommand("assign", "ok", 7*time.Millisecond)
	m.ObserveCommand("assign", "rejected", time.Millisecond)
	m.ObserveUndo("undone")
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(true)
	m.SetLowStock("CRITICAL", 3)
	m.SetLowStock("CRITICAL", 1)

	obs := m.UndoObserver()
	obs(undo.EventCommitted, undo.PendingAction{})
	obs(undo.EventExpired, undo.PendingAction{})

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, n := range []string{
		"inventario_commands_total",
		"inventario_command_duration_seconds",
		"inventario_undo_requests_total",
		"inventario_undo_actions_total",
		"inventario_view_cache_total",
		"inventario_low_stock_products",
	} {
		assert.True(t, names[n], n)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "inventario_low_stock_products"))
	assert.Equal(t, 2.0, counterValue(families, "inventario_commands_total", "outcome", "ok"))
	assert.Equal(t, 2.0, counterValue(families, "inventario_view_cache_total", "result", "hit"))
	assert.Equal(t, 1.0, counterValue(families, "inventario_undo_actions_total", "event", "expired"))
}

func counterValue(families []*dto.MetricFamily, name, label, value string) float64 {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func TestMetrics_RegistrarDosVecesFalla(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}

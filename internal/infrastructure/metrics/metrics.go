// Package metrics expone las métricas del motor de inventario en Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/inventario-ti/internal/application/inventory"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

var _ inventory.Metrics = (*Metrics)(nil)

// Metrics colectores del libro, el cache de vistas y el coordinador de deshacer.
type Metrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	undo     *prometheus.CounterVec
	actions  *prometheus.CounterVec
	cache    *prometheus.CounterVec
	lowStock *prometheus.GaugeVec
}

// New registra los colectores en reg. Con reg nil usa el registerer por defecto.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventario_commands_total",
			Help: "Comandos del libro por nombre y resultado.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inventario_command_duration_seconds",
			Help:    "Duración de los comandos del libro.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		undo: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventario_undo_requests_total",
			Help: "Solicitudes de deshacer por resultado.",
		}, []string{"result"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventario_undo_actions_total",
			Help: "Ciclo de vida de las acciones deshacibles.",
		}, []string{"event"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventario_view_cache_total",
			Help: "Consultas al cache de vistas derivadas.",
		}, []string{"result"}),
		lowStock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventario_low_stock_products",
			Help: "Productos bajo su umbral en el último reporte completo.",
		}, []string{"classification"}),
	}
	reg.MustRegister(m.commands, m.duration, m.undo, m.actions, m.cache, m.lowStock)
	return m
}

func (m *Metrics) ObserveCommand(command, outcome string, elapsed time.Duration) {
	m.commands.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveUndo(result string) {
	m.undo.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) SetLowStock(classification string, count int) {
	m.lowStock.WithLabelValues(classification).Set(float64(count))
}

// UndoObserver cuenta cada transición de las acciones del coordinador.
func (m *Metrics) UndoObserver() undo.Observer {
	return func(ev undo.Event, _ undo.PendingAction) {
		m.actions.WithLabelValues(string(ev)).Inc()
	}
}

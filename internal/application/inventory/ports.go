package inventory

import (
	"context"
	"time"
)

// Locker serializa los comandos sobre un mismo producto.
// Lock bloquea hasta obtener la llave o hasta que ctx termine; la función devuelta la libera.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Metrics recibe observaciones del motor. Implementado en infrastructure/metrics.
type Metrics interface {
	ObserveCommand(command, outcome string, elapsed time.Duration)
	ObserveUndo(event string)
	ObserveCache(hit bool)
	SetLowStock(classification string, count int)
}

// Resultados de un comando para métricas.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // violación de invariante o entrada inválida
	OutcomeError    = "error"
)

type nopMetrics struct{}

func (nopMetrics) ObserveCommand(string, string, time.Duration) {}
func (nopMetrics) ObserveUndo(string)                           {}
func (nopMetrics) ObserveCache(bool)                            {}
func (nopMetrics) SetLowStock(string, int)                      {}

// Package undo mantiene la última acción reversible del proceso.
//
// Hay un único espacio: confirmar una acción nueva reemplaza a la pendiente,
// que ya no podrá deshacerse. La acción pendiente vence al cumplirse la ventana
// configurada; deshacerla ejecuta su reversión exactamente una vez.
package undo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrNothingToUndo = errors.New("no hay acción para deshacer")
	ErrExpiredAction = errors.New("la acción venció o fue reemplazada")
)

// DefaultWindow ventana de reversión por defecto.
const DefaultWindow = 10 * time.Second

const retiredSize = 256

// Reversal deshace los efectos de una acción confirmada.
type Reversal func(ctx context.Context) error

// Action es una mutación ya aplicada junto con su reversión.
type Action struct {
	Description string
	Actor       string
	Revert      Reversal
}

// Ticket identifica una acción confirmada.
type Ticket struct {
	ID       string
	Deadline time.Time
}

// PendingAction vista de solo lectura de la acción pendiente.
type PendingAction struct {
	ID          string
	Description string
	Actor       string
	CommittedAt time.Time
	Deadline    time.Time
}

// Event lo que le ocurrió a una acción.
type Event string

const (
	EventCommitted  Event = "committed"
	EventSuperseded Event = "superseded"
	EventExpired    Event = "expired"
	EventUndone     Event = "undone"
	EventFailed     Event = "failed"
)

// Observer recibe cada transición. Se invoca fuera del lock.
type Observer func(ev Event, action PendingAction)

// Timer es el subconjunto de *time.Timer que usa el coordinador.
type Timer interface {
	Stop() bool
}

// Clock abstrae el tiempo para poder controlarlo en tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock reloj real (monotónico).
func SystemClock() Clock { return systemClock{} }

// Option configura el coordinador.
type Option func(*Coordinator)

// WithClock reemplaza el reloj.
func WithClock(c Clock) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.clock = c
		}
	}
}

// WithObserver registra un observador de transiciones.
func WithObserver(o Observer) Option {
	return func(co *Coordinator) { co.observers = append(co.observers, o) }
}

type slot struct {
	view   PendingAction
	revert Reversal
	gen    uint64
	timer  Timer
}

// Coordinator es seguro para uso concurrente.
type Coordinator struct {
	mu        sync.Mutex
	window    time.Duration
	clock     Clock
	observers []Observer
	gen       uint64
	pending   *slot
	// retired recuerda por qué dejó de estar pendiente un ticket reciente.
	retired *lru.Cache[string, Event]
}

// New crea un coordinador con la ventana indicada (<= 0 usa DefaultWindow).
func New(window time.Duration, opts ...Option) *Coordinator {
	if window <= 0 {
		window = DefaultWindow
	}
	retired, _ := lru.New[string, Event](retiredSize)
	c := &Coordinator{window: window, clock: systemClock{}, retired: retired}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window devuelve la ventana de reversión.
func (c *Coordinator) Window() time.Duration { return c.window }

// Commit registra la acción como la única pendiente. La anterior, si existía,
// queda reemplazada y su reversión nunca se ejecuta.
func (c *Coordinator) Commit(action Action) Ticket {
	now := c.clock.Now()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	var superseded *slot
	if c.pending != nil {
		superseded = c.pending
		superseded.timer.Stop()
		c.retired.Add(superseded.view.ID, EventSuperseded)
	}
	s := &slot{
		view: PendingAction{
			ID:          uuid.NewString(),
			Description: action.Description,
			Actor:       action.Actor,
			CommittedAt: now,
			Deadline:    now.Add(c.window),
		},
		revert: action.Revert,
		gen:    gen,
	}
	s.timer = c.clock.AfterFunc(c.window, func() { c.expire(gen) })
	c.pending = s
	c.mu.Unlock()

	if superseded != nil {
		c.notify(EventSuperseded, superseded.view)
	}
	c.notify(EventCommitted, s.view)
	return Ticket{ID: s.view.ID, Deadline: s.view.Deadline}
}

// Undo deshace la acción pendiente. El espacio queda vacío antes de ejecutar
// la reversión, así que dos llamadas concurrentes nunca la ejecutan dos veces.
func (c *Coordinator) Undo(ctx context.Context) error {
	return c.undo(ctx, "")
}

// UndoAction deshace la acción id solo si sigue pendiente.
// Devuelve ErrExpiredAction si venció o fue reemplazada.
func (c *Coordinator) UndoAction(ctx context.Context, id string) error {
	if id == "" {
		return ErrNothingToUndo
	}
	return c.undo(ctx, id)
}

func (c *Coordinator) undo(ctx context.Context, id string) error {
	now := c.clock.Now()

	c.mu.Lock()
	s := c.pending
	if s != nil && !now.Before(s.view.Deadline) {
		// el timer aún no corrió pero la ventana ya se cumplió
		c.retireLocked(s, EventExpired)
		c.mu.Unlock()
		c.notify(EventExpired, s.view)
		return c.missing(id)
	}
	if s == nil || (id != "" && s.view.ID != id) {
		c.mu.Unlock()
		return c.missing(id)
	}
	c.retireLocked(s, EventUndone)
	c.mu.Unlock()

	var err error
	if s.revert != nil {
		err = s.revert(ctx)
	}
	if err != nil {
		c.notify(EventFailed, s.view)
		return err
	}
	c.notify(EventUndone, s.view)
	return nil
}

func (c *Coordinator) missing(id string) error {
	if id == "" {
		return ErrNothingToUndo
	}
	if ev, ok := c.retired.Get(id); ok && (ev == EventExpired || ev == EventSuperseded) {
		return ErrExpiredAction
	}
	return ErrNothingToUndo
}

// retireLocked vacía el espacio; requiere c.mu.
func (c *Coordinator) retireLocked(s *slot, reason Event) {
	s.timer.Stop()
	c.retired.Add(s.view.ID, reason)
	c.pending = nil
	c.gen++
}

func (c *Coordinator) expire(gen uint64) {
	c.mu.Lock()
	s := c.pending
	if s == nil || s.gen != gen || c.gen != gen {
		// un commit o undo posterior ganó
		c.mu.Unlock()
		return
	}
	c.retireLocked(s, EventExpired)
	c.mu.Unlock()
	c.notify(EventExpired, s.view)
}

// Pending devuelve la acción pendiente, si la hay y no venció.
func (c *Coordinator) Pending() (PendingAction, bool) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || !now.Before(c.pending.view.Deadline) {
		return PendingAction{}, false
	}
	return c.pending.view, true
}

func (c *Coordinator) notify(ev Event, view PendingAction) {
	for _, o := range c.observers {
		o(ev, view)
	}
}

package inventory

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/inventory"
)

// viewCache guarda la proyección más reciente de cada producto junto a la versión
// del libro con la que se construyó. Las proyecciones se comparten: no modificarlas.
type viewCache struct {
	lru     *lru.Cache[string, *inventory.Projection]
	group   singleflight.Group
	metrics Metrics
}

func newViewCache(size int) *viewCache {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, *inventory.Projection](size)
	return &viewCache{lru: c, metrics: nopMetrics{}}
}

type streamLoader func(ctx context.Context) ([]entity.MovementEvent, []entity.RepairEvent, error)

// projection devuelve la proyección vigente del producto. Llamadas concurrentes para el
// mismo producto comparten una sola lectura y un solo replay.
func (c *viewCache) projection(ctx context.Context, p *entity.Product, load streamLoader) (*inventory.Projection, error) {
	ch := c.group.DoChan(p.ID, func() (interface{}, error) {
		movs, reps, err := load(ctx)
		if err != nil {
			return nil, err
		}
		version := inventory.StreamVersion(movs, reps)
		if cached, ok := c.lru.Get(p.ID); ok && cached.Version == version && sameProduct(cached.Product, p) {
			c.metrics.ObserveCache(true)
			return cached, nil
		}
		c.metrics.ObserveCache(false)
		proj, err := inventory.Replay(p, movs, reps)
		if err != nil {
			return nil, err
		}
		c.lru.Add(p.ID, proj)
		return proj, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*inventory.Projection), nil
	}
}

// sameProduct detecta cambios de catálogo (umbrales, nombre) que invalidan el nivel de stock.
func sameProduct(a, b *entity.Product) bool {
	return a.UpdatedAt.Equal(b.UpdatedAt) && a.TracksSerial == b.TracksSerial &&
		a.MinimumThreshold.Equal(b.MinimumThreshold) && a.IdealStock.Equal(b.IdealStock) && a.Name == b.Name
}

func (c *viewCache) forget(productID string) {
	c.lru.Remove(productID)
}

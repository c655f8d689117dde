package testpattern

import (
	"context"
	"fmt"
	"sync"

	"github.com/smazurov/sdinode/internal/hardware"
)

// Discovery enumerates a mutable set of simulated cards.
type Discovery struct {
	mu    sync.Mutex
	cards []*Card
}

// NewDiscovery creates count cards named "Simulated SDI <n>".
func NewDiscovery(count int, opts ...Option) *Discovery {
	d := &Discovery{}
	for i := 0; i < count; i++ {
		d.cards = append(d.cards, NewCard(
			fmt.Sprintf("testpattern-%d", i),
			fmt.Sprintf("Simulated SDI %d", i+1),
			opts...,
		))
	}
	return d
}

// Enumerate implements hardware.Discovery. Unplugged cards are skipped.
func (d *Discovery) Enumerate(ctx context.Context) ([]hardware.Input, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	inputs := make([]hardware.Input, 0, len(d.cards))
	for _, c := range d.cards {
		if c.gone.Load() {
			continue
		}
		inputs = append(inputs, c)
	}
	return inputs, nil
}

// Cards returns the simulated cards, including unplugged ones.
func (d *Discovery) Cards() []*Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Card(nil), d.cards...)
}

// Plug adds a new card and returns it.
func (d *Discovery) Plug(id, name string, opts ...Option) *Card {
	c := NewCard(id, name, opts...)
	d.mu.Lock()
	d.cards = append(d.cards, c)
	d.mu.Unlock()
	return c
}

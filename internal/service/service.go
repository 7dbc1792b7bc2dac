package service

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Invalidator drops data derived from projects and tasks, such as a cached
// dashboard payload.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type invalidators []Invalidator

func (iv invalidators) run(ctx context.Context) {
	for _, inv := range iv {
		if err := inv.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("invalidate derived data")
		}
	}
}

package database

import (
	"context"

	"github.com/s/peripatos/internal/lease"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
)

var defaultSpaces = []models.Space{
	{ID: "lyceum-hall", Name: "Lyceum Hall", Description: "A bright seminar room for up to 30 students.", Image: "/static/img/spaces/lyceum.jpg", Price: 450},
	{ID: "stoa-corner", Name: "Stoa Corner", Description: "Quiet corner room with a whiteboard wall, fits 12.", Image: "/static/img/spaces/stoa.jpg", Price: 220},
	{ID: "garden-studio", Name: "Garden Studio", Description: "Open studio opening onto a courtyard garden.", Image: "/static/img/spaces/garden.jpg", Price: 320},
}

// Seed fills the spaces collection when it is empty.
func Seed(ctx context.Context, store storage.Store) error {
	existing, err := store.List(ctx, "spaces", storage.Query{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	svc := lease.NewService(store)
	for _, s := range defaultSpaces {
		if err := svc.Put(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

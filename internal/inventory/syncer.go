package inventory

import "context"

// StockChange mirrors one decremented counter to an external POS catalog.
type StockChange struct {
	SquareCatalogID string
	Delta           int64
}

type Syncer interface {
	SyncStock(ctx context.Context, changes []StockChange) error
}

type NoopSyncer struct{}

func (NoopSyncer) SyncStock(ctx context.Context, changes []StockChange) error {
	return nil
}

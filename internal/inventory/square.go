package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/emberhollow/storefront/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SquareSyncer pushes inventory adjustments to the Square POS so in-store
// counts follow online sales.
type SquareSyncer struct {
	baseURL     string
	accessToken string
	locationID  string
	httpClient  *http.Client
	log         *zap.Logger
}

func NewSquareSyncer(cfg config.Config, log *zap.Logger) *SquareSyncer {
	return &SquareSyncer{
		baseURL:     cfg.Square.APIBaseURL,
		accessToken: cfg.Square.AccessToken,
		locationID:  cfg.Square.LocationID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("inventory.square"),
	}
}

type squareChange struct {
	Type       string           `json:"type"`
	Adjustment squareAdjustment `json:"adjustment"`
}

type squareAdjustment struct {
	CatalogObjectID string `json:"catalog_object_id"`
	FromState       string `json:"from_state"`
	ToState         string `json:"to_state"`
	LocationID      string `json:"location_id"`
	Quantity        string `json:"quantity"`
	OccurredAt      string `json:"occurred_at"`
}

func (s *SquareSyncer) SyncStock(ctx context.Context, changes []StockChange) error {
	if len(changes) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	payload := struct {
		IdempotencyKey string         `json:"idempotency_key"`
		Changes        []squareChange `json:"changes"`
	}{IdempotencyKey: uuid.NewString()}

	for _, change := range changes {
		if change.SquareCatalogID == "" || change.Delta <= 0 {
			continue
		}
		payload.Changes = append(payload.Changes, squareChange{
			Type: "ADJUSTMENT",
			Adjustment: squareAdjustment{
				CatalogObjectID: change.SquareCatalogID,
				FromState:       "IN_STOCK",
				ToState:         "SOLD",
				LocationID:      s.locationID,
				Quantity:        fmt.Sprintf("%d", change.Delta),
				OccurredAt:      now,
			},
		})
	}
	if len(payload.Changes) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/inventory/changes/batch-create", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("square inventory sync: status %d", resp.StatusCode)
	}
	s.log.Debug("synced stock changes", zap.Int("count", len(payload.Changes)))
	return nil
}

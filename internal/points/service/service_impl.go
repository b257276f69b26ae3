package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/points/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("points.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Award(ctx context.Context, userID snowflake.ID, orderID string, points int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.AwardTx(ctx, tx, userID, orderID, points)
	})
}

func (s *Service) Redeem(ctx context.Context, userID snowflake.ID, orderID string, points int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.RedeemTx(ctx, tx, userID, orderID, points)
	})
}

func (s *Service) AwardTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, orderID string, points int64) error {
	if points <= 0 {
		return domain.ErrInvalidPoints
	}
	ok, err := s.repo.AddBalance(ctx, tx, userID, points)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return s.repo.InsertTransaction(ctx, tx, &domain.PointsTransaction{
		ID:        s.genID.Generate(),
		UserID:    userID,
		OrderID:   orderID,
		EntryType: domain.EntryTypeEarn,
		Delta:     points,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) RedeemTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, orderID string, points int64) error {
	if points <= 0 {
		return domain.ErrInvalidPoints
	}
	ok, err := s.repo.SubtractBalance(ctx, tx, userID, points)
	if err != nil {
		return err
	}
	if !ok {
		_, found, err := s.repo.Balance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrUserNotFound
		}
		return domain.ErrInsufficientPoints
	}
	return s.repo.InsertTransaction(ctx, tx, &domain.PointsTransaction{
		ID:        s.genID.Generate(),
		UserID:    userID,
		OrderID:   orderID,
		EntryType: domain.EntryTypeRedeem,
		Delta:     -points,
		CreatedAt: time.Now().UTC(),
	})
}

// Refund returns previously redeemed points, for example when an order is
// refunded after checkout spent them.
func (s *Service) Refund(ctx context.Context, userID snowflake.ID, orderID string, points int64) error {
	if points <= 0 {
		return domain.ErrInvalidPoints
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.AddBalance(ctx, tx, userID, points)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUserNotFound
		}
		return s.repo.InsertTransaction(ctx, tx, &domain.PointsTransaction{
			ID:        s.genID.Generate(),
			UserID:    userID,
			OrderID:   orderID,
			EntryType: domain.EntryTypeAdjust,
			Delta:     points,
			Note:      "refund",
			CreatedAt: time.Now().UTC(),
		})
	})
}

func (s *Service) Adjust(ctx context.Context, userID snowflake.ID, delta int64, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.AdjustTx(ctx, tx, userID, delta, note)
	})
}

func (s *Service) AdjustTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, delta int64, note string) error {
	if delta == 0 {
		return domain.ErrInvalidPoints
	}
	// Adjustments apply unconditionally; a negative correction may
	// drive the balance below zero. Only RedeemTx guards the balance.
	ok, err := s.repo.AddBalance(ctx, tx, userID, delta)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return s.repo.InsertTransaction(ctx, tx, &domain.PointsTransaction{
		ID:        s.genID.Generate(),
		UserID:    userID,
		EntryType: domain.EntryTypeAdjust,
		Delta:     delta,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	balance, found, err := s.repo.Balance(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domain.ErrUserNotFound
	}
	return balance, nil
}

func (s *Service) Ledger(ctx context.Context, userID snowflake.ID, limit int) ([]domain.PointsTransaction, error) {
	rows, err := s.repo.ListTransactions(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}
	txs := make([]domain.PointsTransaction, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			txs = append(txs, *row)
		}
	}
	return txs, nil
}

// Reconcile compares each balance against its ledger sum and reports drift.
// It never rewrites balances; an operator decides what to do with the report.
func (s *Service) Reconcile(ctx context.Context) ([]domain.Drift, error) {
	sums, err := s.repo.LedgerSums(ctx, s.db)
	if err != nil {
		return nil, err
	}
	balances, err := s.repo.Balances(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var drifts []domain.Drift
	for userID, balance := range balances {
		sum := sums[userID]
		if balance != sum {
			drifts = append(drifts, domain.Drift{
				UserID:     userID,
				Balance:    balance,
				LedgerSum:  sum,
				Difference: balance - sum,
			})
		}
	}
	for _, drift := range drifts {
		s.log.Warn("points balance drift",
			zap.String("user_id", drift.UserID.String()),
			zap.Int64("balance", drift.Balance),
			zap.Int64("ledger_sum", drift.LedgerSum),
		)
	}
	return drifts, nil
}

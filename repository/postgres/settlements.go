package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/podnetwork/pod-sdk-sub000/db"
	"github.com/podnetwork/pod-sdk-sub000/entity"
)

type settlementsRepo struct {
	table string
	db    *db.DB
}

func NewSettlementsRepo(table string, db *db.DB) entity.SettlementsRepo {
	return &settlementsRepo{
		table: table,
		db:    db,
	}
}

func (r *settlementsRepo) Ensure(ctx context.Context, s *entity.Settlement) error {
	q, args, err := r.ensureQuery(s).ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert settlement: %w", err)
	}
	return nil
}

// ensureQuery upserts the row, request fields are immutable once the deposit is recorded.
func (r *settlementsRepo) ensureQuery(s *entity.Settlement) sq.InsertBuilder {
	return sq.Insert(r.table).
		Columns("request_id", "origin", "destination", "asset_kind", "token", "amount", "recipient",
			"origin_block", "status", "deposit_tx_hash", "claim_tx_hash", "prior_balance", "claim_fee", "last_error").
		Values(s.RequestID, s.Origin, s.Destination, s.AssetKind, s.Token, s.Amount, s.Recipient,
			s.OriginBlock, s.Status, s.DepositTxHash, s.ClaimTxHash, s.PriorBalance, s.ClaimFee, s.LastError).
		Suffix("ON CONFLICT (request_id) DO UPDATE SET updated_at = NOW(), status = EXCLUDED.status, " +
			"claim_tx_hash = COALESCE(EXCLUDED.claim_tx_hash, " + r.table + ".claim_tx_hash), " +
			"claim_fee = COALESCE(EXCLUDED.claim_fee, " + r.table + ".claim_fee), last_error = EXCLUDED.last_error").
		PlaceholderFormat(sq.Dollar)
}

func (r *settlementsRepo) findByStatusQuery(statuses []entity.Status) sq.SelectBuilder {
	cond := sq.And{}
	if len(statuses) > 0 {
		cond = append(cond, sq.Eq{"status": statuses})
	}
	return sq.Select("*").
		From(r.table).
		Where(cond).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar)
}

func (r *settlementsRepo) GetByRequestID(ctx context.Context, requestID common.Hash) (*entity.Settlement, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"request_id": requestID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	s := new(entity.Settlement)
	err = r.db.GetContext(ctx, s, q, args...)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("can't get settlement by request id: %w", err)
	}
	return s, nil
}

func (r *settlementsRepo) FindByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Settlement, error) {
	q, args, err := r.findByStatusQuery(statuses).ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]*entity.Settlement, 0, 10)
	err = r.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find settlements by status: %w", err)
	}
	return res, nil
}

package entity

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Settlement is the journal row of one bridge request.
type Settlement struct {
	RequestID     common.Hash    `db:"request_id"`
	Origin        LedgerID       `db:"origin"`
	Destination   LedgerID       `db:"destination"`
	AssetKind     AssetKind      `db:"asset_kind"`
	Token         common.Address `db:"token"`
	Amount        string         `db:"amount"`
	Recipient     common.Address `db:"recipient"`
	OriginBlock   uint64         `db:"origin_block"`
	Status        Status         `db:"status"`
	DepositTxHash common.Hash    `db:"deposit_tx_hash"`
	ClaimTxHash   *common.Hash   `db:"claim_tx_hash"`
	PriorBalance  string         `db:"prior_balance"`
	ClaimFee      *string        `db:"claim_fee"`
	LastError     *string        `db:"last_error"`
	CreatedAt     *time.Time     `db:"created_at"`
	UpdatedAt     *time.Time     `db:"updated_at"`
}

type SettlementsRepo interface {
	Ensure(ctx context.Context, s *Settlement) error
	GetByRequestID(ctx context.Context, requestID common.Hash) (*Settlement, error)
	FindByStatus(ctx context.Context, statuses ...Status) ([]*Settlement, error)
}

func NewSettlement(req *BridgeRequest, lastErr error) *Settlement {
	s := &Settlement{
		RequestID:     req.ID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		AssetKind:     req.Asset.Kind,
		Token:         req.Asset.Token,
		Amount:        req.Amount.String(),
		Recipient:     req.Recipient,
		OriginBlock:   req.OriginBlock,
		Status:        req.Status,
		DepositTxHash: req.DepositTxHash,
		PriorBalance:  "0",
	}
	if req.ClaimTxHash != (common.Hash{}) {
		claimTxHash := req.ClaimTxHash
		s.ClaimTxHash = &claimTxHash
	}
	if req.PriorBalance != nil {
		s.PriorBalance = req.PriorBalance.String()
	}
	if req.ClaimFee != nil {
		fee := req.ClaimFee.String()
		s.ClaimFee = &fee
	}
	if lastErr != nil {
		msg := lastErr.Error()
		s.LastError = &msg
	}
	return s
}

// BridgeRequest restores the in-memory request, e.g. to resume it.
func (s *Settlement) BridgeRequest() (*BridgeRequest, error) {
	amount, ok := new(big.Int).SetString(s.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s.Amount)
	}
	prior, ok := new(big.Int).SetString(s.PriorBalance, 10)
	if !ok {
		return nil, fmt.Errorf("invalid prior balance %q", s.PriorBalance)
	}
	req := &BridgeRequest{
		ID:            s.RequestID,
		Asset:         Asset{Kind: s.AssetKind, Token: s.Token},
		Amount:        amount,
		Origin:        s.Origin,
		Destination:   s.Destination,
		Recipient:     s.Recipient,
		OriginBlock:   s.OriginBlock,
		Status:        s.Status,
		DepositTxHash: s.DepositTxHash,
		PriorBalance:  prior,
	}
	if s.ClaimTxHash != nil {
		req.ClaimTxHash = *s.ClaimTxHash
	}
	if s.ClaimFee != nil {
		fee, ok := new(big.Int).SetString(*s.ClaimFee, 10)
		if !ok {
			return nil, fmt.Errorf("invalid claim fee %q", *s.ClaimFee)
		}
		req.ClaimFee = fee
	}
	return req, nil
}

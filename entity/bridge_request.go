package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerID names one side of the bridge.
type LedgerID string

const (
	LedgerSource     LedgerID = "source"
	LedgerSettlement LedgerID = "settlement"
)

func (l LedgerID) Opposite() LedgerID {
	if l == LedgerSource {
		return LedgerSettlement
	}
	return LedgerSource
}

type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetToken  AssetKind = "token"
)

// Asset is either the ledger native currency or an ERC20 token on the origin ledger.
type Asset struct {
	Kind  AssetKind
	Token common.Address
}

func NativeAsset() Asset {
	return Asset{Kind: AssetNative}
}

func TokenAsset(token common.Address) Asset {
	return Asset{Kind: AssetToken, Token: token}
}

func (a Asset) IsNative() bool {
	return a.Kind == AssetNative
}

func (a Asset) String() string {
	if a.IsNative() {
		return string(AssetNative)
	}
	return fmt.Sprintf("%s(%s)", AssetToken, a.Token)
}

type Status string

const (
	StatusDeposited        Status = "deposited"
	StatusAwaitingFinality Status = "awaiting_finality"
	StatusEvidenceReady    Status = "evidence_ready"
	StatusClaimed          Status = "claimed"
	StatusConfirmed        Status = "confirmed"
	StatusTimedOut         Status = "timed_out"
	StatusRejected         Status = "rejected"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusTimedOut, StatusRejected:
		return true
	default:
		return false
	}
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDeposited, StatusAwaitingFinality, StatusEvidenceReady, StatusClaimed,
		StatusConfirmed, StatusTimedOut, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// BridgeRequest tracks one transfer attempt from a deposit on Origin to a claim on Destination.
type BridgeRequest struct {
	ID            common.Hash
	Asset         Asset
	Amount        *big.Int
	Origin        LedgerID
	Destination   LedgerID
	Recipient     common.Address
	OriginBlock   uint64
	Status        Status
	DepositTxHash common.Hash
	ClaimTxHash   common.Hash
	PriorBalance  *big.Int
	// ClaimFee is the native fee the recipient paid for its own claim, nil when someone else claimed.
	ClaimFee *big.Int
}

// ExpectedBalance is the destination balance that proves the claim landed.
func (r *BridgeRequest) ExpectedBalance() *big.Int {
	prior := r.PriorBalance
	if prior == nil {
		prior = new(big.Int)
	}
	res := new(big.Int).Add(prior, r.Amount)
	if r.Asset.IsNative() && r.ClaimFee != nil {
		res.Sub(res, r.ClaimFee)
	}
	return res
}

package presenter

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

type TxInfo struct {
	ChainID string
	Hash    common.Hash
	Link    string
}

type SettlementInfo struct {
	RequestID    common.Hash
	Origin       entity.LedgerID
	Destination  entity.LedgerID
	Asset        entity.AssetKind
	Token        *common.Address `json:",omitempty"`
	Amount       string
	Recipient    common.Address
	OriginBlock  uint64
	Status       entity.Status
	PriorBalance string
	DepositTx    *TxInfo
	ClaimTx      *TxInfo `json:",omitempty"`
	LastError    *string `json:",omitempty"`
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

type ChainInfo struct {
	Ledger        string
	Name          string
	ChainID       string
	BridgeAddress common.Address
	TokenAddress  common.Address
}

package presenter

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/entity"
)

var formats = map[string]string{
	"1":        "https://etherscan.io/tx/%s",
	"11155111": "https://sepolia.etherscan.io/tx/%s",
	"17000":    "https://holesky.etherscan.io/tx/%s",
}

func txLink(chainID string, txHash common.Hash) string {
	if format, ok := formats[chainID]; ok {
		return fmt.Sprintf(format, txHash)
	}
	return txHash.String()
}

func (p *Presenter) chainID(ledger entity.LedgerID) string {
	side := p.cfg.SourceChain
	if ledger == entity.LedgerSettlement {
		side = p.cfg.SettlementChain
	}
	if side == nil || side.Chain == nil {
		return ""
	}
	return side.Chain.ChainID
}

func (p *Presenter) txInfo(ledger entity.LedgerID, txHash common.Hash) *TxInfo {
	chainID := p.chainID(ledger)
	return &TxInfo{
		ChainID: chainID,
		Hash:    txHash,
		Link:    txLink(chainID, txHash),
	}
}

func (p *Presenter) settlementToInfo(s *entity.Settlement) *SettlementInfo {
	info := &SettlementInfo{
		RequestID:    s.RequestID,
		Origin:       s.Origin,
		Destination:  s.Destination,
		Asset:        s.AssetKind,
		Amount:       s.Amount,
		Recipient:    s.Recipient,
		OriginBlock:  s.OriginBlock,
		Status:       s.Status,
		PriorBalance: s.PriorBalance,
		DepositTx:    p.txInfo(s.Origin, s.DepositTxHash),
		LastError:    s.LastError,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.AssetKind == entity.AssetToken {
		token := s.Token
		info.Token = &token
	}
	if s.ClaimTxHash != nil {
		info.ClaimTx = p.txInfo(s.Destination, *s.ClaimTxHash)
	}
	return info
}

func sideToChainInfo(ledger string, side *config.BridgeSideConfig) *ChainInfo {
	info := &ChainInfo{
		Ledger:        ledger,
		Name:          side.ChainName,
		BridgeAddress: side.BridgeAddress,
		TokenAddress:  side.TokenAddress,
	}
	if side.Chain != nil {
		info.ChainID = side.Chain.ChainID
	}
	return info
}

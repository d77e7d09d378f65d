package evidence

import (
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/podnetwork/pod-sdk-sub000/contract/bridgeabi"
	"github.com/podnetwork/pod-sdk-sub000/entity"
)

// DepositEventSignature is topic0 of the deposit event emitted for the asset.
func DepositEventSignature(asset entity.Asset) common.Hash {
	if asset.IsNative() {
		return bridgeabi.DepositNativeEventSignature
	}
	return bridgeabi.DepositEventSignature
}

// DepositFilter selects exactly the deposit event of the request: topic1 is the request id,
// and for token deposits topic2 is the token address left padded to 32 bytes.
func DepositFilter(bridge common.Address, req *entity.BridgeRequest) ethereum.FilterQuery {
	topics := [][]common.Hash{
		{DepositEventSignature(req.Asset)},
		{req.ID},
	}
	if !req.Asset.IsNative() {
		topics = append(topics, []common.Hash{common.BytesToHash(req.Asset.Token.Bytes())})
	}
	return ethereum.FilterQuery{
		Addresses: []common.Address{bridge},
		Topics:    topics,
	}
}

package evidence

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

// ReceiptProof ties one log of a pod receipt to the receipt root the committee signed.
type ReceiptProof struct {
	Root common.Hash
	Leaf common.Hash
	Path []common.Hash
}

// ReceiptProver derives the receipt root and the inclusion proof of a receipt log.
type ReceiptProver interface {
	ProveLog(receipt *entity.PodReceipt, logIndex uint64) (*ReceiptProof, error)
}

// ReceiptTreeProver rebuilds the receipt Merkle tree locally.
type ReceiptTreeProver struct{}

func (ReceiptTreeProver) ProveLog(receipt *entity.PodReceipt, logIndex uint64) (*ReceiptProof, error) {
	if receipt == nil {
		return nil, fmt.Errorf("%w: log carries no receipt", entity.ErrMalformedCertificate)
	}
	if logIndex >= uint64(len(receipt.Logs)) {
		return nil, fmt.Errorf("%w: log index %d out of range, receipt has %d logs",
			entity.ErrMalformedCertificate, logIndex, len(receipt.Logs))
	}
	leaves, err := ReceiptLeaves(receipt)
	if err != nil {
		return nil, err
	}
	tree := NewMerkleTree(leaves)
	leaf, err := LogLeaf(receiptLog(&receipt.Logs[logIndex]), logIndex)
	if err != nil {
		return nil, err
	}
	path, err := tree.Proof(leaf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrMalformedCertificate, err)
	}
	return &ReceiptProof{
		Root: tree.Root(),
		Leaf: leaf,
		Path: path,
	}, nil
}

// ReceiptRoot is the root of the receipt tree, the value the committee signs.
func ReceiptRoot(receipt *entity.PodReceipt) (common.Hash, error) {
	leaves, err := ReceiptLeaves(receipt)
	if err != nil {
		return common.Hash{}, err
	}
	return NewMerkleTree(leaves).Root(), nil
}

// ReceiptLeaves lists the hashed leaves of the receipt tree. Every value is bound to its field path,
// e.g. "logs[0].data.topics[1]" or "tx.nonce".
func ReceiptLeaves(receipt *entity.PodReceipt) ([]common.Hash, error) {
	var leaves []common.Hash
	add := func(path string, value common.Hash) {
		leaves = append(leaves, HashLeaf(path, value))
	}

	status := uint64(0)
	if receipt.Status {
		status = 1
	}
	add("status", hashUint(status))
	add("actual_gas_used", hashUint(uint64(receipt.ActualGasUsed)))
	for i := range receipt.Logs {
		log := &receipt.Logs[i]
		prefix := fmt.Sprintf("logs[%d]", i)
		add(prefix+".address", crypto.Keccak256Hash(log.Address.Bytes()))
		for j, topic := range log.Topics {
			add(fmt.Sprintf("%s.data.topics[%d]", prefix, j), topic)
		}
		add(prefix+".data.data", crypto.Keccak256Hash(log.Data))
	}
	for i := range receipt.Logs {
		h, err := LogHash(receiptLog(&receipt.Logs[i]))
		if err != nil {
			return nil, err
		}
		add(fmt.Sprintf("log_hashes[%d]", i), h)
	}
	add("logs_root", crypto.Keccak256Hash(receipt.LogsRoot.Bytes()))

	tx := &receipt.Tx
	to := common.Address{}
	if tx.To != nil {
		to = *tx.To
	}
	add("tx.to", crypto.Keccak256Hash(to.Bytes()))
	add("tx.nonce", hashUint(tx.Nonce))
	add("tx.value", hashBig(tx.Value))
	add("tx.gas_limit", hashUint(tx.GasLimit))
	add("tx.call_data", crypto.Keccak256Hash(tx.Input))
	switch tx.Type {
	case types.DynamicFeeTxType:
		add("tx.max_fee_per_gas", hashBig(tx.MaxFeePerGas))
		add("tx.max_priority_fee_per_gas", hashBig(tx.MaxPriorityFeePerGas))
	case types.LegacyTxType, types.AccessListTxType:
		add("tx.gas_price", hashBig(tx.GasPrice))
	default:
		return nil, fmt.Errorf("%w: unsupported transaction type %d", entity.ErrMalformedCertificate, tx.Type)
	}
	return leaves, nil
}

// ReceiptLogMatches reports whether the receipt commits to exactly this log.
func ReceiptLogMatches(l *entity.ReceiptLog, log *types.Log) bool {
	if l.Address != log.Address || len(l.Topics) != len(log.Topics) || string(l.Data) != string(log.Data) {
		return false
	}
	for i := range l.Topics {
		if l.Topics[i] != log.Topics[i] {
			return false
		}
	}
	return true
}

func receiptLog(l *entity.ReceiptLog) *entity.Log {
	return &entity.Log{
		Address: l.Address,
		Topics:  l.Topics,
		Data:    l.Data,
	}
}

// hashUint is keccak256 of the abi encoded word.
func hashUint(n uint64) common.Hash {
	return crypto.Keccak256Hash(common.BigToHash(new(big.Int).SetUint64(n)).Bytes())
}

func hashBig(n *big.Int) common.Hash {
	if n == nil {
		n = new(big.Int)
	}
	return crypto.Keccak256Hash(common.BigToHash(n).Bytes())
}

package entity

import (
	"github.com/ethereum/go-ethereum/common"
)

// Log is the minimal event shape carried inside a certified log.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// MerkleProof is the sibling path from a leaf to the receipt root, leaf side first.
type MerkleProof struct {
	Path []common.Hash
}

type CertifiedReceipt struct {
	ReceiptRoot                 common.Hash
	AggregateSignature          []byte
	SortedAttestationTimestamps []uint64
}

type Certificate struct {
	CertifiedReceipt CertifiedReceipt
	Leaf             common.Hash
	Proof            MerkleProof
}

// CertifiedLog is the claim evidence for a single deposit event.
type CertifiedLog struct {
	Log         Log
	LogIndex    uint64
	Certificate Certificate

	// The fields below locate the log on the origin ledger and are not part of the claim payload.
	BlockNumber     uint64
	TxHash          common.Hash
	ReceiptLogCount uint64 // zero for uncertified logs
}

// IsCertified reports whether the record carries committee evidence at all.
func (l *CertifiedLog) IsCertified() bool {
	c := l.Certificate
	return c.CertifiedReceipt.ReceiptRoot != (common.Hash{}) ||
		len(c.CertifiedReceipt.AggregateSignature) > 0 ||
		len(c.Proof.Path) > 0
}

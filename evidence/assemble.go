package evidence

import (
	"fmt"
	"sort"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

const (
	SignatureLength = 65

	microsecondsPerSecond = 1_000_000
)

// AssembleCertifiedLog turns a verifiable log into the claim record. The aggregate signature
// is the concatenation of the attestation signatures in attestation order, the receipt root,
// leaf and path come from the prover.
func AssembleCertifiedLog(log *entity.VerifiableLog, prover ReceiptProver) (*entity.CertifiedLog, error) {
	meta := log.PodMetadata
	if len(meta.Attestations) == 0 {
		return nil, fmt.Errorf("%w: log has no attestations", entity.ErrMalformedCertificate)
	}
	if meta.Receipt == nil {
		return nil, fmt.Errorf("%w: log carries no receipt", entity.ErrMalformedCertificate)
	}
	logIndex := uint64(log.Index)
	if logIndex >= uint64(len(meta.Receipt.Logs)) {
		return nil, fmt.Errorf("%w: log index %d out of range, receipt has %d logs",
			entity.ErrMalformedCertificate, logIndex, len(meta.Receipt.Logs))
	}
	if !ReceiptLogMatches(&meta.Receipt.Logs[logIndex], &log.Log) {
		return nil, fmt.Errorf("%w: receipt log %d differs from the returned log",
			entity.ErrMalformedCertificate, logIndex)
	}
	proof, err := prover.ProveLog(meta.Receipt, logIndex)
	if err != nil {
		return nil, err
	}
	aggregate := make([]byte, 0, len(meta.Attestations)*SignatureLength)
	for i, att := range meta.Attestations {
		if len(att.Signature) != SignatureLength {
			return nil, fmt.Errorf("%w: attestation %d has %d signature bytes",
				entity.ErrMalformedCertificate, i, len(att.Signature))
		}
		aggregate = append(aggregate, att.Signature...)
	}
	return &entity.CertifiedLog{
		Log: entity.Log{
			Address: log.Address,
			Topics:  log.Topics,
			Data:    log.Data,
		},
		LogIndex: logIndex,
		Certificate: entity.Certificate{
			CertifiedReceipt: entity.CertifiedReceipt{
				ReceiptRoot:                 proof.Root,
				AggregateSignature:          aggregate,
				SortedAttestationTimestamps: SortedTimestampsInSeconds(meta.Attestations),
			},
			Leaf:  proof.Leaf,
			Proof: entity.MerkleProof{Path: proof.Path},
		},
		BlockNumber:     log.BlockNumber,
		TxHash:          log.TxHash,
		ReceiptLogCount: uint64(len(meta.Receipt.Logs)),
	}, nil
}

// SortedTimestampsInSeconds converts attestation timestamps from microseconds and sorts them ascending.
func SortedTimestampsInSeconds(attestations []entity.Attestation) []uint64 {
	res := make([]uint64, len(attestations))
	for i, att := range attestations {
		res[i] = att.Timestamp / microsecondsPerSecond
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// UncertifiedLog wraps a finalized log of a ledger whose claims need no certificate.
func UncertifiedLog(log *entity.VerifiableLog) *entity.CertifiedLog {
	return &entity.CertifiedLog{
		Log: entity.Log{
			Address: log.Address,
			Topics:  log.Topics,
			Data:    log.Data,
		},
		LogIndex:    uint64(log.Index),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
	}
}

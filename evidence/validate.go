package evidence

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

// ValidateLogShape checks that the record is the deposit event of the request emitted by the origin bridge.
func ValidateLogShape(log *entity.CertifiedLog, bridge common.Address, req *entity.BridgeRequest) error {
	expTopics := 3
	if !req.Asset.IsNative() {
		expTopics = 4
	}
	switch {
	case log == nil:
		return fmt.Errorf("%w: empty certified log", entity.ErrMalformedCertificate)
	case log.Log.Address != bridge:
		return fmt.Errorf("%w: log emitted by %s, expected bridge %s", entity.ErrMalformedCertificate, log.Log.Address, bridge)
	case len(log.Log.Topics) != expTopics:
		return fmt.Errorf("%w: log has %d topics, expected %d", entity.ErrMalformedCertificate, len(log.Log.Topics), expTopics)
	case log.Log.Topics[0] != DepositEventSignature(req.Asset):
		return fmt.Errorf("%w: log is not a %s deposit event", entity.ErrMalformedCertificate, req.Asset.Kind)
	case log.Log.Topics[1] != req.ID:
		return fmt.Errorf("%w: log is for request %s, expected %s", entity.ErrMalformedCertificate, log.Log.Topics[1], req.ID)
	case !req.Asset.IsNative() && common.BytesToAddress(log.Log.Topics[2].Bytes()) != req.Asset.Token:
		return fmt.Errorf("%w: log is for token %s, expected %s",
			entity.ErrMalformedCertificate, common.BytesToAddress(log.Log.Topics[2].Bytes()), req.Asset.Token)
	}
	return nil
}

// ValidateCertificate refuses certificates that can never pass on chain verification.
// With verifyProof set, the Merkle path and the leaf are recomputed locally.
func ValidateCertificate(log *entity.CertifiedLog, verifyProof bool) error {
	cert := log.Certificate
	receipt := cert.CertifiedReceipt
	switch {
	case receipt.ReceiptRoot == (common.Hash{}):
		return fmt.Errorf("%w: empty receipt root", entity.ErrMalformedCertificate)
	case cert.Leaf == (common.Hash{}):
		return fmt.Errorf("%w: empty leaf", entity.ErrMalformedCertificate)
	case len(cert.Proof.Path) == 0:
		return fmt.Errorf("%w: empty proof path", entity.ErrMalformedCertificate)
	case len(receipt.AggregateSignature) == 0:
		return fmt.Errorf("%w: empty aggregate signature", entity.ErrMalformedCertificate)
	case len(receipt.AggregateSignature)%SignatureLength != 0:
		return fmt.Errorf("%w: aggregate signature length %d is not a multiple of %d",
			entity.ErrMalformedCertificate, len(receipt.AggregateSignature), SignatureLength)
	case len(receipt.SortedAttestationTimestamps) != len(receipt.AggregateSignature)/SignatureLength:
		return fmt.Errorf("%w: %d timestamps for %d signatures", entity.ErrMalformedCertificate,
			len(receipt.SortedAttestationTimestamps), len(receipt.AggregateSignature)/SignatureLength)
	case log.LogIndex >= log.ReceiptLogCount:
		return fmt.Errorf("%w: log index %d out of range, receipt has %d logs",
			entity.ErrMalformedCertificate, log.LogIndex, log.ReceiptLogCount)
	}
	for i := 1; i < len(receipt.SortedAttestationTimestamps); i++ {
		if receipt.SortedAttestationTimestamps[i-1] > receipt.SortedAttestationTimestamps[i] {
			return fmt.Errorf("%w: attestation timestamps are not sorted", entity.ErrMalformedCertificate)
		}
	}
	if !verifyProof {
		return nil
	}
	leaf, err := LogLeaf(&log.Log, log.LogIndex)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrMalformedCertificate, err)
	}
	if leaf != cert.Leaf {
		return fmt.Errorf("%w: leaf %s does not commit to the log", entity.ErrMalformedCertificate, cert.Leaf)
	}
	if !VerifyProof(receipt.ReceiptRoot, cert.Leaf, cert.Proof.Path) {
		return fmt.Errorf("%w: proof does not lead to receipt root %s", entity.ErrMalformedCertificate, receipt.ReceiptRoot)
	}
	return nil
}

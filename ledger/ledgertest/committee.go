package ledgertest

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
)

var committee = []*ecdsa.PrivateKey{
	mustKey("8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63"),
	mustKey("c87509a1c067bbde78beb793e6fa76530b6382a4c0241e5e4a9ec0a0f44dc0d3"),
	mustKey("ae6ae8e5ccbfb04590405997ee2d52d2b330726137b875053c36d94e974d162f"),
}

func mustKey(hex string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return key
}

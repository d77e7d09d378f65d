package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrEmptyPrivateKey = errors.New("private key is empty")

// ParsePrivateKey accepts a hex encoded secp256k1 key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, common.Address, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, common.Address{}, ErrEmptyPrivateKey
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("can't parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

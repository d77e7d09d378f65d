package evidence

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

var ErrLeafNotFound = errors.New("leaf not found")

var logHashArgs = mustLogHashArgs()

func mustLogHashArgs() abi.Arguments {
	logType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "addr", Type: "address"},
		{Name: "topics", Type: "bytes32[]"},
		{Name: "data", Type: "bytes"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: logType}}
}

// HashPair hashes two nodes in ascending order, so the tree does not depend on sibling position.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// VerifyProof folds the path into the leaf and compares the result with root.
func VerifyProof(root, leaf common.Hash, path []common.Hash) bool {
	node := leaf
	for _, sibling := range path {
		node = HashPair(node, sibling)
	}
	return node == root
}

// LogHash is keccak256 of the abi encoded (address, topics, data) log struct.
func LogHash(log *entity.Log) (common.Hash, error) {
	topics := make([][32]byte, len(log.Topics))
	for i, topic := range log.Topics {
		topics[i] = topic
	}
	encoded, err := logHashArgs.Pack(struct {
		Addr   common.Address
		Topics [][32]byte
		Data   []byte
	}{log.Address, topics, log.Data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("can't encode log: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// LogLeaf is the receipt tree leaf committing to the log at the given receipt position.
func LogLeaf(log *entity.Log, index uint64) (common.Hash, error) {
	h, err := LogHash(log)
	if err != nil {
		return common.Hash{}, err
	}
	return HashLeaf(fmt.Sprintf("log_hashes[%d]", index), h), nil
}

// HashLeaf binds a value to its field path inside the committed structure.
func HashLeaf(path string, value common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte(path), value[:])
}

// MerkleTree keeps sorted leaves in a complete binary tree stored as an array, root first.
type MerkleTree struct {
	nodes   []common.Hash
	indices map[common.Hash]int
}

func NewMerkleTree(leaves []common.Hash) *MerkleTree {
	sorted := append([]common.Hash(nil), leaves...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	t := &MerkleTree{indices: make(map[common.Hash]int, len(sorted))}
	if len(sorted) == 0 {
		t.nodes = []common.Hash{{}}
		return t
	}
	size := 2*len(sorted) - 1
	t.nodes = make([]common.Hash, size)
	for i, leaf := range sorted {
		t.nodes[size-1-i] = leaf
		t.indices[leaf] = size - 1 - i
	}
	for i := size - len(sorted) - 1; i >= 0; i-- {
		t.nodes[i] = HashPair(t.nodes[2*i+1], t.nodes[2*i+2])
	}
	return t
}

func (t *MerkleTree) Root() common.Hash {
	return t.nodes[0]
}

// Proof returns the sibling path from the leaf up to the root.
func (t *MerkleTree) Proof(leaf common.Hash) ([]common.Hash, error) {
	index, ok := t.indices[leaf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, leaf)
	}
	var path []common.Hash
	for index > 0 {
		sibling := index + 1
		if index%2 == 0 {
			sibling = index - 1
		}
		path = append(path, t.nodes[sibling])
		index = (index - 1) / 2
	}
	return path, nil
}

package utils_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/utils"
)

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()

	// well-known first dev account key
	const key = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	expAddr := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	_, addr, err := utils.ParsePrivateKey(key)
	require.NoError(t, err)
	require.Equal(t, expAddr, addr)

	_, addr, err = utils.ParsePrivateKey(key[2:])
	require.NoError(t, err)
	require.Equal(t, expAddr, addr)

	_, _, err = utils.ParsePrivateKey("")
	require.ErrorIs(t, err, utils.ErrEmptyPrivateKey)

	_, _, err = utils.ParsePrivateKey("0x1234")
	require.Error(t, err)
}

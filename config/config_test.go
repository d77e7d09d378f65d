package config_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/config"
)

const testCfg = `
chains:
  sepolia:
    rpc:
      host: https://sepolia.infura.io/v3/${INFURA_PROJECT_KEY}
      timeout: 30s
    chain_id: 11155111
  pod:
    rpc:
      host: https://rpc.v1.dev.pod.network
    chain_id: 1293
source_chain:
  chain: sepolia
  bridge_address: 0x12aE6A8D93fA5c1B4dA1Fd3fC0Ac4e7A2e4E1d10
  token_address: 0x89d24A6b4CcB1B6fAA2625fE562bDD9a23260359
settlement_chain:
  chain: pod
  bridge_address: 0x4aa42145Aa6Ebf72e164C9bBC74fbD3788045016
  token_address: 0x6B175474E89094C44Da98b954EedeAC495271d0F
settlement:
  finality_timeout: 30m
  confirmation_poll_interval: 1s
  verify_proofs: true
postgres:
  user: test_user
  password: test_password
  host: test_host
  port: 5432
  database: test_db
metrics_addr: ":2112"
log_level: debug
presenter:
  host: 0.0.0.0:3333
`

//nolint:paralleltest
func TestReadConfigWithEnv(t *testing.T) {
	t.Setenv("INFURA_PROJECT_KEY", "12345678")
	cfg, err := config.ReadConfigWithEnv([]byte(testCfg))
	require.NoError(t, err)

	sepoliaCfg := &config.ChainConfig{
		RPC: &config.RPCConfig{
			Host:    "https://sepolia.infura.io/v3/12345678",
			Timeout: 30 * time.Second,
		},
		ChainID: "11155111",
	}
	podCfg := &config.ChainConfig{
		RPC: &config.RPCConfig{
			Host:    "https://rpc.v1.dev.pod.network",
			Timeout: 30 * time.Second,
		},
		ChainID: "1293",
	}
	require.Equal(t, &config.Config{
		Chains: map[string]*config.ChainConfig{
			"sepolia": sepoliaCfg,
			"pod":     podCfg,
		},
		SourceChain: &config.BridgeSideConfig{
			ChainName:     "sepolia",
			Chain:         sepoliaCfg,
			BridgeAddress: common.HexToAddress("0x12aE6A8D93fA5c1B4dA1Fd3fC0Ac4e7A2e4E1d10"),
			TokenAddress:  common.HexToAddress("0x89d24A6b4CcB1B6fAA2625fE562bDD9a23260359"),
		},
		SettlementChain: &config.BridgeSideConfig{
			ChainName:     "pod",
			Chain:         podCfg,
			BridgeAddress: common.HexToAddress("0x4aa42145Aa6Ebf72e164C9bBC74fbD3788045016"),
			TokenAddress:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
		},
		Settlement: &config.SettlementConfig{
			FinalityTimeout:          30 * time.Minute,
			FinalityPollInterval:     10 * time.Second,
			ConfirmationTimeout:      5 * time.Minute,
			ConfirmationPollInterval: time.Second,
			EvidenceInitialDelay:     200 * time.Millisecond,
			EvidenceMaxDelay:         5 * time.Second,
			EvidenceMaxAttempts:      8,
			VerifyProofs:             true,
		},
		DBConfig: &config.DBConfig{
			User:     "test_user",
			Password: "test_password",
			Host:     "test_host",
			Port:     5432,
			DB:       "test_db",
		},
		Presenter: &config.PresenterConfig{
			Host: "0.0.0.0:3333",
		},
		MetricsAddr: ":2112",
		LogLevel:    logrus.DebugLevel,
	}, cfg)
}

func TestReadConfig_Errors(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name  string
		Input string
		Err   error
	}{
		{
			Name: "unknown chain",
			Input: `
chains:
  pod:
    rpc:
      host: http://localhost:8545
source_chain:
  chain: sepolia
settlement_chain:
  chain: pod
`,
			Err: config.ErrUnknownChain,
		},
		{
			Name: "missing settlement side",
			Input: `
chains:
  pod:
    rpc:
      host: http://localhost:8545
source_chain:
  chain: pod
`,
			Err: config.ErrMissingBridgeSide,
		},
		{
			Name: "max delay below initial delay",
			Input: `
chains:
  pod:
    rpc:
      host: http://localhost:8545
source_chain:
  chain: pod
settlement_chain:
  chain: pod
settlement:
  evidence_initial_delay: 2s
  evidence_max_delay: 1s
`,
			Err: config.ErrInvalidSettlement,
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			_, err := config.ReadConfig([]byte(test.Input))
			require.ErrorIs(t, err, test.Err)
		})
	}
}

func TestReadConfig_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.ReadConfig([]byte("unknown_field: 1\n"))
	require.Error(t, err)
}

func TestReadConfig_Empty(t *testing.T) {
	t.Parallel()

	_, err := config.ReadConfig([]byte("\n"))
	require.ErrorIs(t, err, config.ErrEmptyConfig)
}

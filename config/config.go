package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownChain      = errors.New("unknown chain")
	ErrMissingBridgeSide = errors.New("bridge side is not configured")
	ErrInvalidSettlement = errors.New("invalid settlement config")
)

const (
	defaultRPCTimeout               = 30 * time.Second
	defaultFinalityTimeout          = 20 * time.Minute
	defaultFinalityPollInterval     = 10 * time.Second
	defaultConfirmationTimeout      = 5 * time.Minute
	defaultConfirmationPollInterval = 2 * time.Second
	defaultEvidenceInitialDelay     = 200 * time.Millisecond
	defaultEvidenceMaxDelay         = 5 * time.Second
	defaultEvidenceMaxAttempts      = 8
)

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

type ChainConfig struct {
	RPC     *RPCConfig `yaml:"rpc"`
	ChainID string     `yaml:"chain_id"`
}

type BridgeSideConfig struct {
	ChainName     string         `yaml:"chain"`
	Chain         *ChainConfig   `yaml:"-"`
	BridgeAddress common.Address `yaml:"bridge_address"`
	TokenAddress  common.Address `yaml:"token_address"`
}

type SettlementConfig struct {
	FinalityTimeout          time.Duration `yaml:"finality_timeout"`
	FinalityPollInterval     time.Duration `yaml:"finality_poll_interval"`
	ConfirmationTimeout      time.Duration `yaml:"confirmation_timeout"`
	ConfirmationPollInterval time.Duration `yaml:"confirmation_poll_interval"`
	EvidenceInitialDelay     time.Duration `yaml:"evidence_initial_delay"`
	EvidenceMaxDelay         time.Duration `yaml:"evidence_max_delay"`
	EvidenceMaxAttempts      int           `yaml:"evidence_max_attempts"`
	VerifyProofs             bool          `yaml:"verify_proofs"`
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	Chains          map[string]*ChainConfig `yaml:"chains"`
	SourceChain     *BridgeSideConfig       `yaml:"source_chain"`
	SettlementChain *BridgeSideConfig       `yaml:"settlement_chain"`
	Settlement      *SettlementConfig       `yaml:"settlement"`
	DBConfig        *DBConfig               `yaml:"postgres"`
	Presenter       *PresenterConfig        `yaml:"presenter"`
	MetricsAddr     string                  `yaml:"metrics_addr"`
	LogLevel        logrus.Level            `yaml:"log_level"`
}

func readYamlConfig(blob []byte) (*Config, error) {
	cfg := &Config{
		LogLevel: logrus.InfoLevel,
	}
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) init() error {
	for name, side := range map[string]*BridgeSideConfig{
		"source_chain":     cfg.SourceChain,
		"settlement_chain": cfg.SettlementChain,
	} {
		if side == nil {
			return fmt.Errorf("%s: %w", name, ErrMissingBridgeSide)
		}
		chain, ok := cfg.Chains[side.ChainName]
		if !ok || chain == nil {
			return fmt.Errorf("%s refers to %q: %w", name, side.ChainName, ErrUnknownChain)
		}
		if chain.RPC == nil {
			return fmt.Errorf("chain %q has no rpc section: %w", side.ChainName, ErrUnknownChain)
		}
		if chain.RPC.Timeout == 0 {
			chain.RPC.Timeout = defaultRPCTimeout
		}
		side.Chain = chain
	}
	if cfg.Settlement == nil {
		cfg.Settlement = &SettlementConfig{}
	}
	return cfg.Settlement.init()
}

func (cfg *SettlementConfig) init() error {
	if cfg.FinalityTimeout == 0 {
		cfg.FinalityTimeout = defaultFinalityTimeout
	}
	if cfg.FinalityPollInterval == 0 {
		cfg.FinalityPollInterval = defaultFinalityPollInterval
	}
	if cfg.ConfirmationTimeout == 0 {
		cfg.ConfirmationTimeout = defaultConfirmationTimeout
	}
	if cfg.ConfirmationPollInterval == 0 {
		cfg.ConfirmationPollInterval = defaultConfirmationPollInterval
	}
	if cfg.EvidenceInitialDelay == 0 {
		cfg.EvidenceInitialDelay = defaultEvidenceInitialDelay
	}
	if cfg.EvidenceMaxDelay == 0 {
		cfg.EvidenceMaxDelay = defaultEvidenceMaxDelay
	}
	if cfg.EvidenceMaxAttempts == 0 {
		cfg.EvidenceMaxAttempts = defaultEvidenceMaxAttempts
	}
	if cfg.EvidenceMaxDelay < cfg.EvidenceInitialDelay {
		return fmt.Errorf("evidence_max_delay %s < evidence_initial_delay %s: %w",
			cfg.EvidenceMaxDelay, cfg.EvidenceInitialDelay, ErrInvalidSettlement)
	}
	if cfg.EvidenceMaxAttempts < 0 {
		return fmt.Errorf("evidence_max_attempts must be positive: %w", ErrInvalidSettlement)
	}
	return nil
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg, err := readYamlConfig(blob)
	if err != nil {
		return nil, err
	}
	if err = cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}

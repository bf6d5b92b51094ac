package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clearsync/sequencer/types"
)

// TLSConfig holds paths to the PEM files needed for mTLS on the wire
// server. When nil or all paths empty, the node falls back to plain TCP.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// ChainConfig describes one source chain the watcher polls for deposits.
type ChainConfig struct {
	ChainID               uint64 `json:"chain_id"`
	Name                  string `json:"name"`
	RPCURL                string `json:"rpc_url"`
	DepositContract       string `json:"deposit_contract"` // 0x-prefixed hex address of the deposit-witnessing contract
	PollIntervalSeconds   int    `json:"poll_interval_seconds"`
	RequiredConfirmations int    `json:"required_confirmations"`
}

// Config holds all node configuration.
type Config struct {
	NodeID  string `json:"node_id"`
	DataDir string `json:"data_dir"`

	RPCPort      int        `json:"rpc_port"`
	RPCAuthToken string     `json:"rpc_auth_token,omitempty"` // empty → no auth
	TLS          *TLSConfig `json:"tls,omitempty"`            // nil → plain TCP

	MaxQueueSize     int    `json:"max_queue_size"`    // 0 → sequencer.DefaultMaxQueueSize
	MaxTxsPerBlock   int    `json:"max_txs_per_block"` // 0 → sequencer.DefaultMaxTxsPerBlock
	SnapshotInterval uint64 `json:"snapshot_interval"` // 0 → sequencer.DefaultSnapshotInterval

	Prove        bool   `json:"prove"`         // generate a stark (and optionally snark) proof per block
	ProveStrict  bool   `json:"prove_strict"`  // proof failure is fatal instead of degrading gracefully
	SnarkEnabled bool   `json:"snark_enabled"` // with prove set, embed a Groth16 envelope over the block roots instead of the stark proof
	ProverKeyDir string `json:"prover_key_dir"`

	Chains []ChainConfig `json:"chains,omitempty"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:           "node0",
		DataDir:          "./data",
		RPCPort:          8545,
		MaxQueueSize:     10_000,
		MaxTxsPerBlock:   1000,
		SnapshotInterval: 100,
		ProverKeyDir:     "./data/keys",
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port must be 1-65535, got %d", c.RPCPort)
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	seen := make(map[uint64]bool, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.ChainID == 0 {
			return fmt.Errorf("chains[%d]: chain_id must not be zero", i)
		}
		if seen[ch.ChainID] {
			return fmt.Errorf("chains[%d]: duplicate chain_id %d", i, ch.ChainID)
		}
		seen[ch.ChainID] = true
		if ch.RPCURL == "" {
			return fmt.Errorf("chains[%d]: rpc_url must not be empty", i)
		}
		if ch.DepositContract == "" {
			return fmt.Errorf("chains[%d]: deposit_contract must not be empty", i)
		}
		if ch.PollIntervalSeconds <= 0 {
			return fmt.Errorf("chains[%d]: poll_interval_seconds must be positive", i)
		}
		if !types.KnownChain(types.ChainID(ch.ChainID)) {
			return fmt.Errorf("chains[%d]: chain_id %d is not in the recognized chain registry", i, ch.ChainID)
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

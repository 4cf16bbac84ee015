package config

import (
	"fmt"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"mmw/crypto"
	"mmw/logx"
)

// LoadWalletConfig reads and parses the wallet.yml file
func LoadWalletConfig(path string) (*WalletConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet config: %w", err)
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode wallet config: %w", err)
	}

	cfg := &cfgFile.Config
	if cfg.RPCAddr == "" {
		cfg.RPCAddr = ":8645"
	}
	logx.Info("CONFIG", fmt.Sprintf("loaded wallet config | address=%s chain_id=%d signers=%d", cfg.WalletAddress, cfg.ChainID, len(cfg.Signers)))
	return cfg, nil
}

// RPCConfig tunes the RPC server, loaded from an .ini file
type RPCConfig struct {
	RequestTimeoutMs int `ini:"request_timeout_ms"`
	MaxBatchOps      int `ini:"max_batch_ops"`

	// RateLimitPerSec caps requests per client address; 0 disables
	RateLimitPerSec int `ini:"rate_limit_per_sec"`
}

// DefaultRPCConfig is used when no server.ini is present
func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		RequestTimeoutMs: 10000,
		MaxBatchOps:      64,
		RateLimitPerSec:  50,
	}
}

// LoadRPCConfig reads RPC tuning from an .ini file
func LoadRPCConfig(path string) (*RPCConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	rpcSection := cfg.Section("rpc")
	rpcCfg := DefaultRPCConfig()
	if err := rpcSection.MapTo(rpcCfg); err != nil {
		return nil, err
	}
	return rpcCfg, nil
}

// LoadSecpPrivKey loads a secp256k1 private key from a file (expects hex
// encoding)
func LoadSecpPrivKey(path string) (*secp256k1.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return crypto.PrivKeyFromHex(string(data))
}

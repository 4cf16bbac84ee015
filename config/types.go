package config

import (
	"mmw/store"
)

// WalletConfig holds the configuration from wallet.yml
type WalletConfig struct {
	ChainID       uint64            `yaml:"chain_id"`
	DomainName    string            `yaml:"domain_name"`
	DomainVersion string            `yaml:"domain_version"`
	WalletAddress string            `yaml:"wallet_address"`
	MaxSigners    int               `yaml:"max_signers"`
	Signers       []string          `yaml:"signers"`
	RPCAddr       string            `yaml:"rpc_addr"`
	Store         store.StoreConfig `yaml:"store"`
}

// ConfigFile is the top-level structure for wallet.yml
type ConfigFile struct {
	Config WalletConfig `yaml:"config"`
}

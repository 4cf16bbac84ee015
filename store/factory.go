package store

import (
	"fmt"

	"mmw/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// BoltStoreType uses the BoltDB implementation
	BoltStoreType StoreType = "bolt"

	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path
	Directory string `json:"directory" yaml:"directory"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	if sc.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	switch sc.Type {
	case BoltStoreType, LevelDBStoreType:
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateStoreWithProvider creates store instances using the provider pattern.
// Both stores share one provider, so MustClose must be called on exactly one.
func (sf *StoreFactory) CreateStoreWithProvider(config *StoreConfig) (WalletStore, InstanceStore, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	walletStore, err := NewGenericWalletStore(provider)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create wallet store: %w", err)
	}

	instanceStore, err := NewGenericInstanceStore(provider)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create instance store: %w", err)
	}

	return walletStore, instanceStore, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case BoltStoreType:
		return db.NewBoltProvider(config.Directory)

	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStore creates new store instances using the global factory
func CreateStore(config *StoreConfig) (WalletStore, InstanceStore, error) {
	return globalFactory.CreateStoreWithProvider(config)
}

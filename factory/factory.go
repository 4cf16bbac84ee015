package factory

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"mmw/crypto"
	"mmw/events"
	"mmw/logx"
	"mmw/store"
	"mmw/types"
	"mmw/wallet"
)

// WalletFactory produces independent wallet instances from one template
// and records them in an enumerable registry. It holds no governance
// logic; every instance governs itself.
type WalletFactory struct {
	mu        sync.Mutex
	chainID   uint64
	instances store.InstanceStore
	wallets   map[string]*wallet.Wallet
}

// CreateOptions tunes one instance creation
type CreateOptions struct {
	// Salt makes the instance address deterministic and predictable via
	// PredictAddress; empty picks a random salt
	Salt string

	MaxSigners int

	// Collaborators handed to the new wallet instance
	Store      store.WalletStore
	Bus        *events.EventBus
	Dispatcher wallet.Dispatcher
	Resolver   wallet.ValidatorResolver
	Clock      func() time.Time
}

func New(chainID uint64, instances store.InstanceStore) *WalletFactory {
	return &WalletFactory{
		chainID:   chainID,
		instances: instances,
		wallets:   make(map[string]*wallet.Wallet),
	}
}

// PredictAddress computes the address an instance created by creator with
// this salt and initial signer list will receive
func (f *WalletFactory) PredictAddress(creator, salt string, signers []string) (string, error) {
	creatorBytes, err := crypto.AddressBytes(creator)
	if err != nil {
		return "", fmt.Errorf("invalid creator address: %w", err)
	}
	normalized := make([]string, len(signers))
	for i, s := range signers {
		normalized[i] = crypto.NormalizeAddress(s)
	}
	hash := crypto.Keccak256(
		creatorBytes,
		crypto.Keccak256([]byte(salt)),
		crypto.Keccak256([]byte(strings.Join(normalized, ","))),
	)
	return "0x" + hex.EncodeToString(hash[len(hash)-crypto.AddressLength:]), nil
}

// Create builds a fresh wallet instance governed by the given signer list
// and records it in the registry
func (f *WalletFactory) Create(creator string, signers []string, opts CreateOptions) (*wallet.Wallet, *types.InstanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	salt := opts.Salt
	if salt == "" {
		salt = uuid.Must(uuid.NewV7()).String()
	}

	address, err := f.PredictAddress(creator, salt, signers)
	if err != nil {
		return nil, nil, err
	}

	if f.instances != nil {
		exists, err := f.instances.HasInstance(address)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check instance registry: %w", err)
		}
		if exists {
			return nil, nil, fmt.Errorf("wallet instance already deployed at %s", address)
		}
	}

	w, err := wallet.New(wallet.Options{
		Domain: types.DomainInfo{
			ChainID:       f.chainID,
			WalletAddress: address,
		},
		MaxSigners:     opts.MaxSigners,
		InitialSigners: signers,
		Store:          opts.Store,
		Bus:            opts.Bus,
		Dispatcher:     opts.Dispatcher,
		Resolver:       opts.Resolver,
		Clock:          opts.Clock,
	})
	if err != nil {
		return nil, nil, err
	}

	record := &types.InstanceRecord{
		Address:   address,
		Creator:   crypto.NormalizeAddress(creator),
		Salt:      salt,
		Signers:   w.GetSigners(),
		ChainID:   f.chainID,
		CreatedAt: uint64(time.Now().Unix()),
	}

	if f.instances != nil {
		if err := f.instances.StoreInstance(record); err != nil {
			return nil, nil, fmt.Errorf("failed to record instance: %w", err)
		}
	}

	f.wallets[address] = w
	logx.Info("FACTORY", fmt.Sprintf("deployed wallet instance | address=%s creator=%s signers=%d", address, record.Creator, len(record.Signers)))
	return w, record, nil
}

// Get returns a live instance by address, nil when unknown
func (f *WalletFactory) Get(address string) *wallet.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallets[crypto.NormalizeAddress(address)]
}

// List enumerates registered instances with offset/limit pagination
func (f *WalletFactory) List(offset, limit int) ([]*types.InstanceRecord, error) {
	if f.instances == nil {
		return nil, fmt.Errorf("factory has no instance registry")
	}
	return f.instances.ListInstances(offset, limit)
}

// Count returns the number of registered instances
func (f *WalletFactory) Count() (int, error) {
	if f.instances == nil {
		return 0, fmt.Errorf("factory has no instance registry")
	}
	return f.instances.CountInstances()
}

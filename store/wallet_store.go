package store

import (
	"encoding/binary"
	"fmt"

	"mmw/db"
	"mmw/jsonx"
	"mmw/logx"
	"mmw/types"
)

// WalletStore persists one wallet instance's durable state: the signer
// set, proposals, per-signer nonces and the proposal id counter.
type WalletStore interface {
	StoreProposal(proposal *types.Proposal) error
	GetProposal(id uint64) (*types.Proposal, error)
	ListProposals() ([]*types.Proposal, error)

	StoreSigners(signers []string) error
	GetSigners() ([]string, error)

	StoreNonce(addr string, nonce uint64) error
	GetNonce(addr string) (uint64, error)
	GetAllNonces() (map[string]uint64, error)

	StoreNextProposalID(id uint64) error
	GetNextProposalID() (uint64, error)

	// CommitExecution writes everything a successful execute produced in
	// one atomic batch: the executed proposal, the possibly-mutated signer
	// set, and any proposals cancelled by governance operations.
	CommitExecution(proposal *types.Proposal, signers []string, cancelled []*types.Proposal) error

	MustClose()
}

type GenericWalletStore struct {
	dbProvider db.DatabaseProvider
}

func NewGenericWalletStore(dbProvider db.DatabaseProvider) (*GenericWalletStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericWalletStore{
		dbProvider: dbProvider,
	}, nil
}

func (s *GenericWalletStore) StoreProposal(proposal *types.Proposal) error {
	if proposal == nil {
		return fmt.Errorf("proposal cannot be nil")
	}

	proposalData, err := jsonx.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
	}

	if err := s.dbProvider.Put(s.getProposalKey(proposal.ID), proposalData); err != nil {
		return fmt.Errorf("failed to store proposal: %w", err)
	}

	return nil
}

// GetProposal returns the stored proposal, or nil when the id is unknown
func (s *GenericWalletStore) GetProposal(id uint64) (*types.Proposal, error) {
	data, err := s.dbProvider.Get(s.getProposalKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal %d: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}

	var proposal types.Proposal
	if err := jsonx.Unmarshal(data, &proposal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proposal %d: %w", id, err)
	}
	return &proposal, nil
}

func (s *GenericWalletStore) ListProposals() ([]*types.Proposal, error) {
	iterableProvider, ok := s.dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("database provider does not support iteration")
	}

	var proposals []*types.Proposal
	prefix := []byte(PrefixProposal)

	err := iterableProvider.IteratePrefix(prefix, func(key, value []byte) bool {
		var proposal types.Proposal
		if err := jsonx.Unmarshal(value, &proposal); err != nil {
			logx.Error("WALLET_STORE", "failed to unmarshal proposal", "error", err)
			return true
		}
		proposals = append(proposals, &proposal)
		return true
	})

	if err != nil {
		return nil, fmt.Errorf("failed to iterate proposals: %w", err)
	}

	return proposals, nil
}

func (s *GenericWalletStore) StoreSigners(signers []string) error {
	signerData, err := jsonx.Marshal(signers)
	if err != nil {
		return fmt.Errorf("failed to marshal signer set: %w", err)
	}

	if err := s.dbProvider.Put([]byte(KeySigners), signerData); err != nil {
		return fmt.Errorf("failed to store signer set: %w", err)
	}

	return nil
}

func (s *GenericWalletStore) GetSigners() ([]string, error) {
	data, err := s.dbProvider.Get([]byte(KeySigners))
	if err != nil {
		return nil, fmt.Errorf("failed to get signer set: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var signers []string
	if err := jsonx.Unmarshal(data, &signers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signer set: %w", err)
	}
	return signers, nil
}

func (s *GenericWalletStore) StoreNonce(addr string, nonce uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, nonce)
	if err := s.dbProvider.Put(s.getNonceKey(addr), buf); err != nil {
		return fmt.Errorf("failed to store nonce for %s: %w", addr, err)
	}
	return nil
}

// GetNonce returns the stored nonce, zero when none was recorded yet
func (s *GenericWalletStore) GetNonce(addr string) (uint64, error) {
	data, err := s.dbProvider.Get(s.getNonceKey(addr))
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce for %s: %w", addr, err)
	}
	if len(data) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *GenericWalletStore) GetAllNonces() (map[string]uint64, error) {
	iterableProvider, ok := s.dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("database provider does not support iteration")
	}

	nonces := make(map[string]uint64)
	prefix := []byte(PrefixNonce)

	err := iterableProvider.IteratePrefix(prefix, func(key, value []byte) bool {
		if len(value) != 8 {
			logx.Error("WALLET_STORE", "skipping malformed nonce entry", "key", string(key))
			return true
		}
		addr := string(key[len(prefix):])
		nonces[addr] = binary.BigEndian.Uint64(value)
		return true
	})

	if err != nil {
		return nil, fmt.Errorf("failed to iterate nonces: %w", err)
	}

	return nonces, nil
}

func (s *GenericWalletStore) StoreNextProposalID(id uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := s.dbProvider.Put([]byte(KeyNextProposalID), buf); err != nil {
		return fmt.Errorf("failed to store next proposal id: %w", err)
	}
	return nil
}

func (s *GenericWalletStore) GetNextProposalID() (uint64, error) {
	data, err := s.dbProvider.Get([]byte(KeyNextProposalID))
	if err != nil {
		return 0, fmt.Errorf("failed to get next proposal id: %w", err)
	}
	if len(data) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *GenericWalletStore) CommitExecution(proposal *types.Proposal, signers []string, cancelled []*types.Proposal) error {
	if proposal == nil {
		return fmt.Errorf("proposal cannot be nil")
	}

	batch := s.dbProvider.Batch()
	defer batch.Close()

	proposalData, err := jsonx.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("failed to marshal executed proposal: %w", err)
	}
	batch.Put(s.getProposalKey(proposal.ID), proposalData)

	signerData, err := jsonx.Marshal(signers)
	if err != nil {
		return fmt.Errorf("failed to marshal signer set: %w", err)
	}
	batch.Put([]byte(KeySigners), signerData)

	for _, c := range cancelled {
		cancelledData, err := jsonx.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal cancelled proposal %d: %w", c.ID, err)
		}
		batch.Put(s.getProposalKey(c.ID), cancelledData)
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to commit execution batch: %w", err)
	}

	return nil
}

func (s *GenericWalletStore) MustClose() {
	if err := s.dbProvider.Close(); err != nil {
		logx.Error("WALLET_STORE", "Failed to close db provider:", err.Error())
	}
}

func (s *GenericWalletStore) getProposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", PrefixProposal, id))
}

func (s *GenericWalletStore) getNonceKey(addr string) []byte {
	return []byte(PrefixNonce + addr)
}

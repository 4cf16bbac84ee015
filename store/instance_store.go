package store

import (
	"fmt"

	"mmw/db"
	"mmw/jsonx"
	"mmw/logx"
	"mmw/types"
)

// InstanceStore is the enumerable registry of wallet instances produced by
// the factory
type InstanceStore interface {
	StoreInstance(record *types.InstanceRecord) error
	GetInstance(address string) (*types.InstanceRecord, error)
	HasInstance(address string) (bool, error)
	ListInstances(offset, limit int) ([]*types.InstanceRecord, error)
	CountInstances() (int, error)
	MustClose()
}

type GenericInstanceStore struct {
	dbProvider db.DatabaseProvider
}

func NewGenericInstanceStore(dbProvider db.DatabaseProvider) (*GenericInstanceStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericInstanceStore{
		dbProvider: dbProvider,
	}, nil
}

func (s *GenericInstanceStore) StoreInstance(record *types.InstanceRecord) error {
	if record == nil {
		return fmt.Errorf("instance record cannot be nil")
	}

	recordData, err := jsonx.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal instance record: %w", err)
	}

	if err := s.dbProvider.Put(s.getInstanceKey(record.Address), recordData); err != nil {
		return fmt.Errorf("failed to store instance record: %w", err)
	}

	logx.Info("INSTANCE_STORE", "stored wallet instance", "address", record.Address)
	return nil
}

func (s *GenericInstanceStore) GetInstance(address string) (*types.InstanceRecord, error) {
	data, err := s.dbProvider.Get(s.getInstanceKey(address))
	if err != nil {
		return nil, fmt.Errorf("failed to get instance record: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("wallet instance not found: %s", address)
	}

	var record types.InstanceRecord
	if err := jsonx.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance record: %w", err)
	}
	return &record, nil
}

func (s *GenericInstanceStore) HasInstance(address string) (bool, error) {
	return s.dbProvider.Has(s.getInstanceKey(address))
}

// ListInstances enumerates registered instances in key order with
// offset/limit pagination; limit <= 0 means no limit
func (s *GenericInstanceStore) ListInstances(offset, limit int) ([]*types.InstanceRecord, error) {
	iterableProvider, ok := s.dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("database provider does not support iteration")
	}

	var records []*types.InstanceRecord
	skipped := 0
	prefix := []byte(PrefixInstance)

	err := iterableProvider.IteratePrefix(prefix, func(key, value []byte) bool {
		if skipped < offset {
			skipped++
			return true
		}
		if limit > 0 && len(records) >= limit {
			return false
		}
		var record types.InstanceRecord
		if err := jsonx.Unmarshal(value, &record); err != nil {
			logx.Error("INSTANCE_STORE", "failed to unmarshal instance record", "error", err)
			return true
		}
		records = append(records, &record)
		return true
	})

	if err != nil {
		return nil, fmt.Errorf("failed to iterate instance records: %w", err)
	}

	return records, nil
}

func (s *GenericInstanceStore) CountInstances() (int, error) {
	iterableProvider, ok := s.dbProvider.(db.IterableProvider)
	if !ok {
		return 0, fmt.Errorf("database provider does not support iteration")
	}

	count := 0
	err := iterableProvider.IteratePrefix([]byte(PrefixInstance), func(key, value []byte) bool {
		count++
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count instance records: %w", err)
	}

	return count, nil
}

func (s *GenericInstanceStore) MustClose() {
	if err := s.dbProvider.Close(); err != nil {
		logx.Error("INSTANCE_STORE", "Failed to close db provider:", err.Error())
	}
}

func (s *GenericInstanceStore) getInstanceKey(address string) []byte {
	return []byte(PrefixInstance + address)
}

package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmw/db"
	"mmw/types"
)

func newBoltInstanceStore(t *testing.T) *GenericInstanceStore {
	t.Helper()
	provider, err := db.NewBoltProvider(t.TempDir())
	require.NoError(t, err)
	s, err := NewGenericInstanceStore(provider)
	require.NoError(t, err)
	t.Cleanup(s.MustClose)
	return s
}

func sampleInstance(i int) *types.InstanceRecord {
	return &types.InstanceRecord{
		Address:   fmt.Sprintf("0x%040d", i+1),
		Creator:   "0x0000000000000000000000000000000000000099",
		Salt:      fmt.Sprintf("salt-%d", i),
		Signers:   []string{"0x0000000000000000000000000000000000000001"},
		ChainID:   1,
		CreatedAt: 1_700_000_000,
	}
}

func TestInstanceRoundTrip(t *testing.T) {
	s := newBoltInstanceStore(t)
	record := sampleInstance(0)

	has, err := s.HasInstance(record.Address)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.StoreInstance(record))

	has, err = s.HasInstance(record.Address)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.GetInstance(record.Address)
	require.NoError(t, err)
	assert.Equal(t, record.Address, got.Address)
	assert.Equal(t, record.Salt, got.Salt)
	assert.Equal(t, record.Signers, got.Signers)

	_, err = s.GetInstance("0x0000000000000000000000000000000000000042")
	assert.Error(t, err)

	assert.Error(t, s.StoreInstance(nil))
}

func TestListInstancesPagination(t *testing.T) {
	s := newBoltInstanceStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.StoreInstance(sampleInstance(i)))
	}

	count, err := s.CountInstances()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	all, err := s.ListInstances(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := s.ListInstances(0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := s.ListInstances(2, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
	assert.NotEqual(t, page[0].Address, rest[0].Address)

	empty, err := s.ListInstances(10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

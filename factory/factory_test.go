package factory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmw/db"
	"mmw/store"
	"mmw/types"
)

func testSigners() []string {
	return []string{
		"0x0000000000000000000000000000000000000001",
		"0x0000000000000000000000000000000000000002",
		"0x0000000000000000000000000000000000000003",
	}
}

const testCreator = "0x0000000000000000000000000000000000000099"

func newTestFactory(t *testing.T) *WalletFactory {
	t.Helper()
	provider, err := db.NewBoltProvider(t.TempDir())
	require.NoError(t, err)
	instances, err := store.NewGenericInstanceStore(provider)
	require.NoError(t, err)
	t.Cleanup(instances.MustClose)
	return New(1, instances)
}

func TestPredictAddressDeterminism(t *testing.T) {
	f := newTestFactory(t)

	a1, err := f.PredictAddress(testCreator, "salt-1", testSigners())
	require.NoError(t, err)
	a2, err := f.PredictAddress(testCreator, "salt-1", testSigners())
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Len(t, a1, 42)

	// Every input separates the address
	b, err := f.PredictAddress(testCreator, "salt-2", testSigners())
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)

	c, err := f.PredictAddress("0x0000000000000000000000000000000000000098", "salt-1", testSigners())
	require.NoError(t, err)
	assert.NotEqual(t, a1, c)

	d, err := f.PredictAddress(testCreator, "salt-1", testSigners()[:2])
	require.NoError(t, err)
	assert.NotEqual(t, a1, d)

	// Signer case does not change the address
	mixed := []string{"0x00000000000000000000000000000000000000Ab", "0x0000000000000000000000000000000000000002"}
	lower := []string{"0x00000000000000000000000000000000000000ab", "0x0000000000000000000000000000000000000002"}
	e1, err := f.PredictAddress(testCreator, "salt-1", mixed)
	require.NoError(t, err)
	e2, err := f.PredictAddress(testCreator, "salt-1", lower)
	require.NoError(t, err)
	assert.Equal(t, e1, e2)

	_, err = f.PredictAddress("bogus", "salt-1", testSigners())
	assert.Error(t, err)
}

func TestCreateRecordsInstance(t *testing.T) {
	f := newTestFactory(t)

	w, record, err := f.Create(testCreator, testSigners(), CreateOptions{Salt: "salt-1"})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NotNil(t, record)

	predicted, err := f.PredictAddress(testCreator, "salt-1", testSigners())
	require.NoError(t, err)
	assert.Equal(t, predicted, record.Address)
	assert.Equal(t, testCreator, record.Creator)
	assert.Equal(t, testSigners(), record.Signers)
	assert.Equal(t, uint64(1), record.ChainID)

	// The new instance is live and self-governed
	assert.Equal(t, 3, w.GetSignerCount())
	assert.Equal(t, record.Address, w.GetDomainInfo().WalletAddress)
	assert.Same(t, w, f.Get(record.Address))

	count, err := f.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateRejectsDuplicateDeployment(t *testing.T) {
	f := newTestFactory(t)

	_, _, err := f.Create(testCreator, testSigners(), CreateOptions{Salt: "salt-1"})
	require.NoError(t, err)

	_, _, err = f.Create(testCreator, testSigners(), CreateOptions{Salt: "salt-1"})
	assert.Error(t, err)

	// A different salt deploys fine
	_, _, err = f.Create(testCreator, testSigners(), CreateOptions{Salt: "salt-2"})
	assert.NoError(t, err)
}

func TestCreateRandomSalt(t *testing.T) {
	f := newTestFactory(t)

	_, r1, err := f.Create(testCreator, testSigners(), CreateOptions{})
	require.NoError(t, err)
	_, r2, err := f.Create(testCreator, testSigners(), CreateOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, r1.Salt, r2.Salt)
	assert.NotEqual(t, r1.Address, r2.Address)
}

func TestCreatedInstancesAreIndependent(t *testing.T) {
	f := newTestFactory(t)
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	w1, _, err := f.Create(testCreator, testSigners(), CreateOptions{Salt: "a", Clock: clock})
	require.NoError(t, err)
	w2, _, err := f.Create(testCreator, testSigners(), CreateOptions{Salt: "b", Clock: clock})
	require.NoError(t, err)

	ops := []types.Operation{{Target: "0x0000000000000000000000000000000000000042"}}
	id, err := w1.Propose(testSigners()[0], ops, uint64(now.Unix())+3600)
	require.NoError(t, err)

	// Sibling instances share nothing
	assert.NotNil(t, w1.GetProposal(id))
	assert.Nil(t, w2.GetProposal(id))
	assert.Empty(t, w2.ListProposals())
}

func TestListPagination(t *testing.T) {
	f := newTestFactory(t)
	for i := 0; i < 4; i++ {
		_, _, err := f.Create(testCreator, testSigners(), CreateOptions{Salt: fmt.Sprintf("salt-%d", i)})
		require.NoError(t, err)
	}

	page, err := f.List(0, 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	rest, err := f.List(3, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmw/db"
	"mmw/types"
)

func newBoltWalletStore(t *testing.T) *GenericWalletStore {
	t.Helper()
	provider, err := db.NewBoltProvider(t.TempDir())
	require.NoError(t, err)
	s, err := NewGenericWalletStore(provider)
	require.NoError(t, err)
	t.Cleanup(s.MustClose)
	return s
}

func sampleProposal(id uint64) *types.Proposal {
	voter := fmt.Sprintf("0x%040d", id+1)
	return &types.Proposal{
		ID:         id,
		Proposer:   voter,
		Expiration: 1_700_000_000 + id,
		Status:     types.StatusProposed,
		Operations: []types.Operation{{Target: "0x0000000000000000000000000000000000000099", Payload: []byte("data")}},
		YesVoters:  []string{voter},
		VotedYes:   map[string]bool{voter: true},
	}
}

func TestProposalRoundTrip(t *testing.T) {
	s := newBoltWalletStore(t)

	got, err := s.GetProposal(0)
	require.NoError(t, err)
	assert.Nil(t, got)

	original := sampleProposal(0)
	require.NoError(t, s.StoreProposal(original))

	got, err = s.GetProposal(0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, original.Proposer, got.Proposer)
	assert.Equal(t, original.Status, got.Status)
	assert.Equal(t, original.YesVoters, got.YesVoters)
	assert.True(t, got.VotedYes[original.Proposer])
	require.Len(t, got.Operations, 1)
	assert.Equal(t, original.Operations[0].Target, got.Operations[0].Target)

	assert.Error(t, s.StoreProposal(nil))
}

func TestListProposalsKeyOrder(t *testing.T) {
	s := newBoltWalletStore(t)

	// Stored out of order; zero-padded keys iterate numerically
	for _, id := range []uint64{5, 0, 12, 3} {
		require.NoError(t, s.StoreProposal(sampleProposal(id)))
	}

	proposals, err := s.ListProposals()
	require.NoError(t, err)
	require.Len(t, proposals, 4)
	ids := make([]uint64, len(proposals))
	for i, p := range proposals {
		ids[i] = p.ID
	}
	assert.Equal(t, []uint64{0, 3, 5, 12}, ids)
}

func TestSignerSetRoundTrip(t *testing.T) {
	s := newBoltWalletStore(t)

	got, err := s.GetSigners()
	require.NoError(t, err)
	assert.Nil(t, got)

	signers := []string{"0x0000000000000000000000000000000000000001", "0x0000000000000000000000000000000000000002"}
	require.NoError(t, s.StoreSigners(signers))

	got, err = s.GetSigners()
	require.NoError(t, err)
	assert.Equal(t, signers, got)
}

func TestNonceRoundTrip(t *testing.T) {
	s := newBoltWalletStore(t)
	addr := "0x0000000000000000000000000000000000000001"

	nonce, err := s.GetNonce(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)

	require.NoError(t, s.StoreNonce(addr, 7))
	nonce, err = s.GetNonce(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	require.NoError(t, s.StoreNonce("0x0000000000000000000000000000000000000002", 3))
	nonces, err := s.GetAllNonces()
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{
		addr: 7,
		"0x0000000000000000000000000000000000000002": 3,
	}, nonces)
}

func TestNextProposalIDRoundTrip(t *testing.T) {
	s := newBoltWalletStore(t)

	id, err := s.GetNextProposalID()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	require.NoError(t, s.StoreNextProposalID(42))
	id, err = s.GetNextProposalID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestCommitExecutionWritesEverything(t *testing.T) {
	s := newBoltWalletStore(t)

	executed := sampleProposal(1)
	cancelled := sampleProposal(2)
	require.NoError(t, s.StoreProposal(executed))
	require.NoError(t, s.StoreProposal(cancelled))

	executed.Status = types.StatusExecuted
	cancelled.Status = types.StatusCancelled
	signers := []string{"0x0000000000000000000000000000000000000009"}

	require.NoError(t, s.CommitExecution(executed, signers, []*types.Proposal{cancelled}))

	got, err := s.GetProposal(1)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExecuted, got.Status)

	got, err = s.GetProposal(2)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, got.Status)

	persistedSigners, err := s.GetSigners()
	require.NoError(t, err)
	assert.Equal(t, signers, persistedSigners)

	assert.Error(t, s.CommitExecution(nil, signers, nil))
}

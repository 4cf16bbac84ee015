package wallet

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmw/crypto"
	"mmw/db"
	"mmw/errors"
	"mmw/store"
	"mmw/types"
)

func openTestStore(t *testing.T, dir string) store.WalletStore {
	t.Helper()
	provider, err := db.NewBoltProvider(dir)
	require.NoError(t, err)
	s, err := store.NewGenericWalletStore(provider)
	require.NoError(t, err)
	return s
}

// Proposals, votes, nonces, the signer set and the id counter all survive a
// restart from the same store
func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	keyed := crypto.PubkeyToAddress(priv.PubKey())
	signers := []string{testAddr(0), testAddr(1), keyed}
	newcomer := testAddr(7)

	var proposalID, govID uint64
	{
		w := newTestWallet(t, signers, func(o *Options) {
			o.Store = openTestStore(t, dir)
		})

		proposalID, err = w.Propose(signers[0], []types.Operation{plainOp(testAddr(9))}, testExpiration())
		require.NoError(t, err)
		require.NoError(t, w.VoteFor(proposalID, signers[1]))

		digest, err := crypto.VoteDigest(w.GetDomainInfo(), proposalID, true, 0)
		require.NoError(t, err)
		require.NoError(t, w.VoteOnBehalfOf(proposalID, keyed, true, crypto.SignDigest(priv, digest)))

		// An executed governance proposal mutates the persisted signer set
		govID, err = w.Propose(signers[0], []types.Operation{govOp(t, &types.GovernanceAction{Action: types.GovAddSigner, Signer: newcomer})}, testExpiration())
		require.NoError(t, err)
		require.NoError(t, w.VoteFor(govID, signers[1]))
		require.NoError(t, w.Execute(govID))

		w.Close()
	}

	// InitialSigners are ignored when the store already holds a signer set
	w := newTestWallet(t, []string{testAddr(8)}, func(o *Options) {
		o.Store = openTestStore(t, dir)
	})
	defer w.Close()

	assert.Equal(t, 4, w.GetSignerCount())
	assert.True(t, w.IsSigner(newcomer))
	assert.False(t, w.IsSigner(testAddr(8)))

	proposal := w.GetProposal(proposalID)
	require.NotNil(t, proposal)
	assert.Equal(t, types.StatusProposed, proposal.Status)
	assert.Equal(t, 3, w.GetValidYesCount(proposalID))
	assert.True(t, w.HasVoted(proposalID, keyed))

	assert.Equal(t, types.StatusExecuted, w.GetProposal(govID).Status)
	assert.Equal(t, uint64(1), w.GetNonce(keyed))

	// The id counter continues past the persisted proposals
	next, err := w.Propose(testAddr(0), []types.Operation{plainOp(testAddr(9))}, testExpiration())
	require.NoError(t, err)
	assert.Equal(t, govID+1, next)
}

// Retraction must round-trip through persistence: a restart may not
// resurrect a retracted vote
func TestRetractionSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	signers := []string{testAddr(0), testAddr(1), testAddr(2)}

	var id uint64
	{
		w := newTestWallet(t, signers, func(o *Options) {
			o.Store = openTestStore(t, dir)
		})
		var err error
		id, err = w.Propose(signers[0], []types.Operation{plainOp(testAddr(9))}, testExpiration())
		require.NoError(t, err)
		require.NoError(t, w.VoteFor(id, signers[1]))
		require.NoError(t, w.CancelVoteFor(id, signers[1]))
		w.Close()
	}

	w := newTestWallet(t, signers, func(o *Options) {
		o.Store = openTestStore(t, dir)
	})
	defer w.Close()

	assert.False(t, w.HasVoted(id, signers[1]))
	assert.Equal(t, 1, w.GetValidYesCount(id))
}

func TestExecutedProposalIsTerminalAfterRestart(t *testing.T) {
	dir := t.TempDir()
	signers := []string{testAddr(0), testAddr(1)}
	clock := testClockAt(testNow)

	var id uint64
	{
		w := newTestWallet(t, signers, func(o *Options) {
			o.Store = openTestStore(t, dir)
			o.Clock = clock
		})
		var err error
		id, err = w.Propose(signers[0], []types.Operation{plainOp(testAddr(9))}, testExpiration())
		require.NoError(t, err)
		require.NoError(t, w.VoteFor(id, signers[1]))
		require.NoError(t, w.Execute(id))
		w.Close()
	}

	w := newTestWallet(t, signers, func(o *Options) {
		o.Store = openTestStore(t, dir)
		o.Clock = func() time.Time { return time.Unix(testNow+1, 0) }
	})
	defer w.Close()

	assert.Equal(t, types.StatusExecuted, w.GetProposal(id).Status)
	err := w.Execute(id)
	assert.Error(t, err)
}

// flakyNonceStore fails nonce writes on demand while every other store
// operation keeps working
type flakyNonceStore struct {
	store.WalletStore
	failNonce bool
}

func (s *flakyNonceStore) StoreNonce(addr string, nonce uint64) error {
	if s.failNonce {
		return fmt.Errorf("simulated store failure")
	}
	return s.WalletStore.StoreNonce(addr, nonce)
}

// A nonce advance that cannot be persisted is refunded in memory, so the
// counter never runs ahead of the store and the signed tuple stays usable
// once persistence recovers
func TestNonceRefundedOnStoreFailure(t *testing.T) {
	dir := t.TempDir()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	keyed := crypto.PubkeyToAddress(priv.PubKey())
	signers := []string{testAddr(0), keyed}

	flaky := &flakyNonceStore{WalletStore: openTestStore(t, dir)}
	w := newTestWallet(t, signers, func(o *Options) {
		o.Store = flaky
	})
	defer w.Close()

	id, err := w.Propose(signers[0], []types.Operation{plainOp(testAddr(9))}, testExpiration())
	require.NoError(t, err)

	digest, err := crypto.VoteDigest(w.GetDomainInfo(), id, true, 0)
	require.NoError(t, err)
	sig := crypto.SignDigest(priv, digest)

	flaky.failNonce = true
	err = w.VoteOnBehalfOf(id, keyed, true, sig)
	require.True(t, errors.IsCode(err, errors.ErrCodeInternal))
	assert.Equal(t, uint64(0), w.GetNonce(keyed))
	assert.False(t, w.HasVoted(id, keyed))

	// The identical signature authenticates once the store recovers
	flaky.failNonce = false
	require.NoError(t, w.VoteOnBehalfOf(id, keyed, true, sig))
	assert.Equal(t, uint64(1), w.GetNonce(keyed))
	assert.True(t, w.HasVoted(id, keyed))
}

package wallet

import (
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"
	"mmw/crypto"
	"mmw/errors"
	"mmw/types"
)

// ProposalStore creates, keeps and transitions proposals. Ids are allocated
// from a monotonically increasing counter starting at 0 and are never
// reused; cancellation does not reclaim them.
type ProposalStore struct {
	registry  *SignerRegistry
	ledger    *VoteLedger
	proposals map[uint64]*types.Proposal
	nextID    uint64
}

func NewProposalStore(registry *SignerRegistry, ledger *VoteLedger) *ProposalStore {
	return &ProposalStore{
		registry:  registry,
		ledger:    ledger,
		proposals: make(map[uint64]*types.Proposal),
	}
}

// Create validates and stores a new proposal and auto-casts the proposer's
// yes-vote
func (ps *ProposalStore) Create(proposer string, operations []types.Operation, expiration uint64, now time.Time) (*types.Proposal, error) {
	proposer = crypto.NormalizeAddress(proposer)
	if !ps.registry.IsSigner(proposer) {
		return nil, errors.NewError(errors.ErrCodeNotSigner, "proposer is not a current signer: "+proposer)
	}
	if len(operations) == 0 {
		return nil, errors.NewError(errors.ErrCodeEmptyBatch, "proposal batch cannot be empty")
	}
	if expiration <= uint64(now.Unix()) {
		return nil, errors.NewError(errors.ErrCodeBadExpiration, "expiration must be strictly in the future")
	}

	ops := make([]types.Operation, len(operations))
	for i, op := range operations {
		if err := crypto.ValidateAddress(op.Target); err != nil {
			return nil, errors.NewError(errors.ErrCodeInvalidAddress, fmt.Sprintf("operation %d: %s", i, err.Error()))
		}
		ops[i] = types.Operation{
			Target:  crypto.NormalizeAddress(op.Target),
			Value:   op.Value,
			Payload: append([]byte(nil), op.Payload...),
		}
		if ops[i].Value == nil {
			ops[i].Value = uint256.NewInt(0)
		}
	}

	proposal := &types.Proposal{
		ID:         ps.nextID,
		Proposer:   proposer,
		Expiration: expiration,
		Status:     types.StatusProposed,
		Operations: ops,
		VotedYes:   make(map[string]bool),
	}
	if err := ps.ledger.CastYes(proposal, proposer, now); err != nil {
		return nil, err
	}

	ps.proposals[proposal.ID] = proposal
	ps.nextID++
	return proposal, nil
}

// Get returns the proposal for id, or nil for unknown ids (NotStarted)
func (ps *ProposalStore) Get(id uint64) *types.Proposal {
	return ps.proposals[id]
}

// All returns every stored proposal ordered by id
func (ps *ProposalStore) All() []*types.Proposal {
	out := make([]*types.Proposal, 0, len(ps.proposals))
	for _, p := range ps.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextID returns the next id the store will allocate
func (ps *ProposalStore) NextID() uint64 {
	return ps.nextID
}

// Cancel moves a proposal to the terminal Cancelled state. The caller must
// be the original proposer and still a current signer, or the governance
// execution path: a removed signer does not keep cancellation power merely
// by having been the proposer.
func (ps *ProposalStore) Cancel(id uint64, caller string, proof *GovProof) error {
	proposal := ps.proposals[id]
	if proposal == nil {
		return errors.NewError(errors.ErrCodeUnknownProposal, fmt.Sprintf("proposal %d not found", id))
	}
	if proposal.Status != types.StatusProposed {
		return errors.NewError(errors.ErrCodeWrongStatus, fmt.Sprintf("proposal %d is %s, not proposed", id, proposal.Status))
	}

	if !proof.authorized() {
		caller = crypto.NormalizeAddress(caller)
		if caller != proposal.Proposer {
			return errors.NewError(errors.ErrCodeNotCanceller, "only the original proposer may cancel")
		}
		if !ps.registry.IsSigner(caller) {
			return errors.NewError(errors.ErrCodeNotCanceller, "proposer is no longer a current signer")
		}
	}

	proposal.Status = types.StatusCancelled
	return nil
}

// adopt restores a persisted proposal on startup
func (ps *ProposalStore) adopt(proposal *types.Proposal) {
	if proposal.VotedYes == nil {
		proposal.VotedYes = make(map[string]bool)
	}
	ps.proposals[proposal.ID] = proposal
	if proposal.ID >= ps.nextID {
		ps.nextID = proposal.ID + 1
	}
}

// setNextID overrides the id counter from persisted state
func (ps *ProposalStore) setNextID(id uint64) {
	if id > ps.nextID {
		ps.nextID = id
	}
}

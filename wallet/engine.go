package wallet

import (
	"fmt"
	"time"

	"mmw/errors"
	"mmw/events"
	"mmw/logx"
	"mmw/types"
)

// Dispatcher runs one non-governance operation against its external
// target. Operation payloads are opaque to the engine. Implementations
// should be transactional: a dispatched operation whose successor fails is
// rolled back at the engine level only.
type Dispatcher interface {
	Dispatch(op types.Operation) error
}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(op types.Operation) error

func (f DispatcherFunc) Dispatch(op types.Operation) error {
	return f(op)
}

// LogDispatcher accepts every operation and only logs it. It is the
// default for wallets that carry no external execution backend.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(op types.Operation) error {
	logx.Info("ENGINE", fmt.Sprintf("dispatching operation | target=%s value=%s payload_bytes=%d", op.Target, op.Value, len(op.Payload)))
	return nil
}

// ExecutionEngine recomputes vote validity against the current signer set,
// checks the strict-majority threshold and runs the batch atomically.
// Operations targeting the wallet's own address are governance actions and
// run under a GovProof only this engine constructs.
type ExecutionEngine struct {
	registry      *SignerRegistry
	ledger        *VoteLedger
	proposals     *ProposalStore
	dispatcher    Dispatcher
	walletAddress string
}

func NewExecutionEngine(registry *SignerRegistry, ledger *VoteLedger, proposals *ProposalStore, dispatcher Dispatcher, walletAddress string) *ExecutionEngine {
	if dispatcher == nil {
		dispatcher = LogDispatcher{}
	}
	return &ExecutionEngine{
		registry:      registry,
		ledger:        ledger,
		proposals:     proposals,
		dispatcher:    dispatcher,
		walletAddress: walletAddress,
	}
}

// executionResult carries everything a successful execute produced, so the
// facade can persist first and publish events after
type executionResult struct {
	proposal  *types.Proposal
	cancelled []*types.Proposal
	events    []events.WalletEvent
}

// Execute runs proposal id if the strict majority of the CURRENT signer
// set has a valid yes-vote. The status flips to Executed before any
// operation runs, so the batch itself can never re-enter this proposal.
// Any operation failure aborts the whole call and rewinds every state
// change it made, the status flip included.
func (e *ExecutionEngine) Execute(id uint64, now time.Time) (*executionResult, error) {
	proposal := e.proposals.Get(id)
	if proposal == nil {
		return nil, errors.NewError(errors.ErrCodeUnknownProposal, fmt.Sprintf("proposal %d not found", id))
	}
	if proposal.Status != types.StatusProposed {
		return nil, errors.NewError(errors.ErrCodeWrongStatus, fmt.Sprintf("proposal %d is %s, not proposed", id, proposal.Status))
	}
	if uint64(now.Unix()) > proposal.Expiration {
		return nil, errors.NewError(errors.ErrCodeProposalExpired, fmt.Sprintf("proposal %d expired", id))
	}

	validYes := e.ledger.ValidYesCount(proposal)
	signerCount := e.registry.Count()
	if validYes <= signerCount/2 {
		return nil, errors.NewError(errors.ErrCodeInsufficientVotes, fmt.Sprintf("proposal %d has %d valid yes-votes of %d signers, majority not reached", id, validYes, signerCount))
	}

	// Snapshots for all-or-nothing rollback
	signersSnap, indexSnap := e.registry.snapshot()
	touched := make(map[uint64]*types.Proposal)

	rollback := func() {
		e.registry.restore(signersSnap, indexSnap)
		for tid, preImage := range touched {
			*e.proposals.Get(tid) = *preImage
		}
		proposal.Status = types.StatusProposed
	}

	// State-commit precedes external effects: a reentrant execute of the
	// same proposal now fails the status check
	proposal.Status = types.StatusExecuted

	proof := &GovProof{proposalID: id, valid: true}
	result := &executionResult{proposal: proposal}

	for i, op := range proposal.Operations {
		var opErr error
		if op.Target == e.walletAddress {
			opErr = e.runGovernanceOp(proof, op, touched, result)
		} else {
			opErr = e.dispatcher.Dispatch(op)
		}
		if opErr != nil {
			rollback()
			logx.Warn("ENGINE", fmt.Sprintf("execution of proposal %d aborted at operation %d: %v", id, i, opErr))
			return nil, errors.NewError(errors.ErrCodeExecutionFailed, fmt.Sprintf("operation %d failed: %v", i, opErr))
		}
	}

	result.events = append(result.events, events.NewProposalExecuted(id, validYes))
	logx.Info("ENGINE", fmt.Sprintf("executed proposal %d | valid_yes=%d signers=%d ops=%d", id, validYes, signerCount, len(proposal.Operations)))
	return result, nil
}

func (e *ExecutionEngine) runGovernanceOp(proof *GovProof, op types.Operation, touched map[uint64]*types.Proposal, result *executionResult) error {
	action, err := types.DecodeGovernanceAction(op.Payload)
	if err != nil {
		return err
	}

	switch action.Action {
	case types.GovAddSigner:
		if err := e.registry.AddSigner(proof, action.Signer); err != nil {
			return err
		}
		result.events = append(result.events, events.NewSignerAdded(proof.ProposalID(), action.Signer))
		return nil

	case types.GovRemoveSigner:
		if err := e.registry.RemoveSigner(proof, action.Signer); err != nil {
			return err
		}
		result.events = append(result.events, events.NewSignerRemoved(proof.ProposalID(), action.Signer))
		return nil

	case types.GovCancelProposal:
		target := e.proposals.Get(action.ProposalID)
		// The executing proposal is never captured here: its status
		// already flipped, and rollback resets it separately
		if target != nil && action.ProposalID != proof.ProposalID() {
			if _, seen := touched[action.ProposalID]; !seen {
				touched[action.ProposalID] = target.Clone()
			}
		}
		if err := e.proposals.Cancel(action.ProposalID, e.walletAddress, proof); err != nil {
			return err
		}
		result.cancelled = append(result.cancelled, target)
		result.events = append(result.events, events.NewProposalCancelled(action.ProposalID, e.walletAddress))
		return nil

	default:
		return fmt.Errorf("unknown governance action: %s", action.Action)
	}
}

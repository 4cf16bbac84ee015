package wallet

import (
	"fmt"
	"sync"
	"time"

	"mmw/crypto"
	"mmw/errors"
	"mmw/events"
	"mmw/logx"
	"mmw/store"
	"mmw/types"
)

// Default domain binding for signed votes
const (
	DomainName    = "mmw"
	DomainVersion = "1"
)

// Options configures one wallet instance
type Options struct {
	Domain         types.DomainInfo
	MaxSigners     int
	InitialSigners []string

	// Store persists wallet state; nil keeps the wallet in memory only
	Store store.WalletStore

	// Bus receives wallet events; nil disables event publication
	Bus *events.EventBus

	// Dispatcher runs non-governance operations; nil installs LogDispatcher
	Dispatcher Dispatcher

	// Resolver supplies delegated validation capabilities; nil disables
	// the delegated path
	Resolver ValidatorResolver

	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// Wallet is the facade over the governance engine. One mutex serializes
// every call: all external actors observe a single linear history, and
// each call fully validates against current state before writing.
type Wallet struct {
	mu         sync.Mutex
	domain     types.DomainInfo
	registry   *SignerRegistry
	ledger     *VoteLedger
	proposals  *ProposalStore
	authorizer *SignatureAuthorizer
	engine     *ExecutionEngine
	store      store.WalletStore
	bus        *events.EventBus
	clock      func() time.Time
}

// New builds a wallet from options, restoring persisted state when the
// store already holds this instance's data
func New(opts Options) (*Wallet, error) {
	domain := opts.Domain
	if domain.Name == "" {
		domain.Name = DomainName
	}
	if domain.Version == "" {
		domain.Version = DomainVersion
	}
	if err := crypto.ValidateAddress(domain.WalletAddress); err != nil {
		return nil, errors.NewError(errors.ErrCodeInvalidAddress, "wallet address: "+err.Error())
	}
	domain.WalletAddress = crypto.NormalizeAddress(domain.WalletAddress)

	signers := opts.InitialSigners
	if opts.Store != nil {
		persisted, err := opts.Store.GetSigners()
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted signer set: %w", err)
		}
		if len(persisted) > 0 {
			signers = persisted
		}
	}

	registry, err := NewSignerRegistry(signers, opts.MaxSigners)
	if err != nil {
		return nil, err
	}

	ledger := NewVoteLedger(registry)
	proposals := NewProposalStore(registry, ledger)
	authorizer := NewSignatureAuthorizer(domain, registry, opts.Resolver)
	engine := NewExecutionEngine(registry, ledger, proposals, opts.Dispatcher, domain.WalletAddress)

	w := &Wallet{
		domain:     domain,
		registry:   registry,
		ledger:     ledger,
		proposals:  proposals,
		authorizer: authorizer,
		engine:     engine,
		store:      opts.Store,
		bus:        opts.Bus,
		clock:      opts.Clock,
	}
	if w.clock == nil {
		w.clock = time.Now
	}

	if opts.Store != nil {
		if err := w.restore(); err != nil {
			return nil, err
		}
		if err := opts.Store.StoreSigners(registry.List()); err != nil {
			return nil, fmt.Errorf("failed to persist initial signer set: %w", err)
		}
	}

	logx.Info("WALLET", fmt.Sprintf("wallet ready | address=%s chain_id=%d signers=%d max_signers=%d", domain.WalletAddress, domain.ChainID, registry.Count(), registry.MaxSigners()))
	return w, nil
}

func (w *Wallet) restore() error {
	persisted, err := w.store.ListProposals()
	if err != nil {
		return fmt.Errorf("failed to load persisted proposals: %w", err)
	}
	for _, p := range persisted {
		w.proposals.adopt(p)
	}

	nextID, err := w.store.GetNextProposalID()
	if err != nil {
		return fmt.Errorf("failed to load proposal id counter: %w", err)
	}
	w.proposals.setNextID(nextID)

	nonces, err := w.store.GetAllNonces()
	if err != nil {
		return fmt.Errorf("failed to load persisted nonces: %w", err)
	}
	w.authorizer.loadNonces(nonces)
	return nil
}

// Propose creates a proposal and auto-casts the proposer's yes-vote
func (w *Wallet) Propose(proposer string, operations []types.Operation, expiration uint64) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	proposal, err := w.proposals.Create(proposer, operations, expiration, w.clock())
	if err != nil {
		return 0, err
	}

	if w.store != nil {
		if err := w.store.StoreProposal(proposal); err == nil {
			err = w.store.StoreNextProposalID(w.proposals.NextID())
		}
		if err != nil {
			delete(w.proposals.proposals, proposal.ID)
			w.proposals.nextID = proposal.ID
			return 0, errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("failed to persist proposal: %v", err))
		}
	}

	logx.Info("WALLET", fmt.Sprintf("proposal created | id=%d proposer=%s ops=%d digest=%s", proposal.ID, proposal.Proposer, len(proposal.Operations), proposal.Digest()))
	w.publish(events.NewProposalCreated(proposal.ID, proposal.Proposer, proposal.Digest()))
	w.publish(events.NewVoteCast(proposal.ID, proposal.Proposer))
	return proposal.ID, nil
}

// VoteFor casts a yes-vote directly; voter must be a current signer
func (w *Wallet) VoteFor(id uint64, voter string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	voter = crypto.NormalizeAddress(voter)
	if !w.registry.IsSigner(voter) {
		return errors.NewError(errors.ErrCodeNotSigner, "voter is not a current signer: "+voter)
	}
	proposal := w.proposals.Get(id)
	if proposal == nil {
		return errors.NewError(errors.ErrCodeUnknownProposal, fmt.Sprintf("proposal %d not found", id))
	}

	if err := w.ledger.CastYes(proposal, voter, w.clock()); err != nil {
		return err
	}
	if err := w.persistProposal(proposal); err != nil {
		w.undoCast(proposal, voter)
		return err
	}

	w.publish(events.NewVoteCast(id, voter))
	return nil
}

// CancelVoteFor retracts a yes-vote directly; voter must be a current signer
func (w *Wallet) CancelVoteFor(id uint64, voter string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	voter = crypto.NormalizeAddress(voter)
	if !w.registry.IsSigner(voter) {
		return errors.NewError(errors.ErrCodeNotSigner, "voter is not a current signer: "+voter)
	}
	proposal := w.proposals.Get(id)
	if proposal == nil {
		return errors.NewError(errors.ErrCodeUnknownProposal, fmt.Sprintf("proposal %d not found", id))
	}

	if err := w.ledger.RetractYes(proposal, voter, w.clock()); err != nil {
		return err
	}
	if err := w.persistProposal(proposal); err != nil {
		proposal.YesVoters = append(proposal.YesVoters, voter)
		proposal.VotedYes[voter] = true
		return err
	}

	w.publish(events.NewVoteRetracted(id, voter))
	return nil
}

// VoteOnBehalfOf casts or retracts a yes-vote for voter, authorized by an
// off-chain signature. Anyone may submit. The nonce is consumed the moment
// the signature verifies; a ledger-level failure afterwards (double vote,
// expired proposal) does not refund it, so a signed tuple is single-use.
// A nonce that cannot be persisted is refunded and the call rejected, so
// the counter never runs ahead of the store.
func (w *Wallet) VoteOnBehalfOf(id uint64, voter string, support bool, signature []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	voter = crypto.NormalizeAddress(voter)
	usedNonce, err := w.authorizer.Authorize(id, support, voter, signature)
	if err != nil {
		return err
	}

	if w.store != nil {
		if err := w.store.StoreNonce(voter, usedNonce+1); err != nil {
			w.authorizer.rewindNonce(voter, usedNonce)
			return errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("failed to persist nonce for %s: %v", voter, err))
		}
	}

	proposal := w.proposals.Get(id)
	if proposal == nil {
		return errors.NewError(errors.ErrCodeUnknownProposal, fmt.Sprintf("proposal %d not found", id))
	}

	now := w.clock()
	if support {
		if err := w.ledger.CastYes(proposal, voter, now); err != nil {
			return err
		}
		if err := w.persistProposal(proposal); err != nil {
			w.undoCast(proposal, voter)
			return err
		}
		w.publish(events.NewVoteCast(id, voter))
		return nil
	}

	if err := w.ledger.RetractYes(proposal, voter, now); err != nil {
		return err
	}
	if err := w.persistProposal(proposal); err != nil {
		proposal.YesVoters = append(proposal.YesVoters, voter)
		proposal.VotedYes[voter] = true
		return err
	}
	w.publish(events.NewVoteRetracted(id, voter))
	return nil
}

// Execute runs the proposal batch if the strict majority of the current
// signer set holds. Callable by anyone: authorization was already proven
// by the majority of signers.
func (w *Wallet) Execute(id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Pre-images for rollback should the durable commit fail after the
	// batch succeeded in memory
	signersSnap, indexSnap := w.registry.snapshot()
	var proposalSnap *types.Proposal
	if p := w.proposals.Get(id); p != nil {
		proposalSnap = p.Clone()
	}

	result, err := w.engine.Execute(id, w.clock())
	if err != nil {
		return err
	}

	if w.store != nil {
		if err := w.store.CommitExecution(result.proposal, w.registry.List(), result.cancelled); err != nil {
			w.registry.restore(signersSnap, indexSnap)
			if proposalSnap != nil {
				*w.proposals.Get(id) = *proposalSnap
			}
			for _, c := range result.cancelled {
				c.Status = types.StatusProposed
			}
			return errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("failed to persist execution: %v", err))
		}
	}

	for _, event := range result.events {
		w.publish(event)
	}
	return nil
}

// CancelProposal cancels a still-open proposal. Caller must be the
// original proposer and still a current signer; governance-path
// cancellation goes through an executed proposal instead.
func (w *Wallet) CancelProposal(id uint64, caller string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.proposals.Cancel(id, caller, nil); err != nil {
		return err
	}

	proposal := w.proposals.Get(id)
	if err := w.persistProposal(proposal); err != nil {
		proposal.Status = types.StatusProposed
		return err
	}

	w.publish(events.NewProposalCancelled(id, crypto.NormalizeAddress(caller)))
	return nil
}

// GetSigners returns the current signer sequence
func (w *Wallet) GetSigners() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registry.List()
}

// GetSignerCount returns the current signer count
func (w *Wallet) GetSignerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registry.Count()
}

// IsSigner reports whether addr is a current signer
func (w *Wallet) IsSigner(addr string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registry.IsSigner(addr)
}

// GetProposal returns a copy of the proposal, or nil for unknown ids
func (w *Wallet) GetProposal(id uint64) *types.Proposal {
	w.mu.Lock()
	defer w.mu.Unlock()
	proposal := w.proposals.Get(id)
	if proposal == nil {
		return nil
	}
	return proposal.Clone()
}

// ListProposals returns copies of all proposals ordered by id
func (w *Wallet) ListProposals() []*types.Proposal {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := w.proposals.All()
	out := make([]*types.Proposal, len(all))
	for i, p := range all {
		out[i] = p.Clone()
	}
	return out
}

// HasVoted reports whether voter is in the proposal's yes-voter history
func (w *Wallet) HasVoted(id uint64, voter string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	proposal := w.proposals.Get(id)
	if proposal == nil {
		return false
	}
	return w.ledger.HasVotedYes(proposal, crypto.NormalizeAddress(voter))
}

// GetYesVoterHistory returns the historical yes-voter list, ex-signers
// included
func (w *Wallet) GetYesVoterHistory(id uint64) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	proposal := w.proposals.Get(id)
	if proposal == nil {
		return nil
	}
	return w.ledger.YesVoterHistory(proposal)
}

// GetValidYesCount recomputes the proposal's currently-counting yes-votes
func (w *Wallet) GetValidYesCount(id uint64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	proposal := w.proposals.Get(id)
	if proposal == nil {
		return 0
	}
	return w.ledger.ValidYesCount(proposal)
}

// GetNonce returns the next nonce expected from addr
func (w *Wallet) GetNonce(addr string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.authorizer.Nonce(addr)
}

// GetDomainInfo returns the domain bound into signed vote digests
func (w *Wallet) GetDomainInfo() types.DomainInfo {
	return w.domain
}

// MaxSigners returns the configured signer bound
func (w *Wallet) MaxSigners() int {
	return w.registry.MaxSigners()
}

// Bus exposes the event bus, nil when events are disabled
func (w *Wallet) Bus() *events.EventBus {
	return w.bus
}

// Close releases the underlying store, when one is attached
func (w *Wallet) Close() {
	if w.store != nil {
		w.store.MustClose()
	}
}

func (w *Wallet) persistProposal(proposal *types.Proposal) error {
	if w.store == nil {
		return nil
	}
	if err := w.store.StoreProposal(proposal); err != nil {
		return errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("failed to persist proposal %d: %v", proposal.ID, err))
	}
	return nil
}

func (w *Wallet) undoCast(proposal *types.Proposal, voter string) {
	for i, v := range proposal.YesVoters {
		if v == voter {
			last := len(proposal.YesVoters) - 1
			proposal.YesVoters[i] = proposal.YesVoters[last]
			proposal.YesVoters = proposal.YesVoters[:last]
			break
		}
	}
	delete(proposal.VotedYes, voter)
}

func (w *Wallet) publish(event events.WalletEvent) {
	if w.bus != nil {
		w.bus.Publish(event)
	}
}

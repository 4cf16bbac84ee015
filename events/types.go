package events

import (
	"time"
)

// EventType is an enum-like string type for wallet events
type EventType string

const (
	EventSignerAdded       EventType = "SignerAdded"
	EventSignerRemoved     EventType = "SignerRemoved"
	EventProposalCreated   EventType = "ProposalCreated"
	EventVoteCast          EventType = "VoteCast"
	EventVoteRetracted     EventType = "VoteRetracted"
	EventProposalCancelled EventType = "ProposalCancelled"
	EventProposalExecuted  EventType = "ProposalExecuted"
)

// WalletEvent represents any event emitted by the wallet engine.
// Signer events carry the id of the proposal whose execution changed the
// set; genesis signer changes carry GenesisProposalID.
type WalletEvent interface {
	Type() EventType
	Timestamp() time.Time
	ProposalID() uint64
}

// GenesisProposalID marks signer events that did not come from a proposal
const GenesisProposalID = ^uint64(0)

// SignerAdded event when a signer joins the set
type SignerAdded struct {
	proposalID uint64
	signer     string
	timestamp  time.Time
}

func NewSignerAdded(proposalID uint64, signer string) *SignerAdded {
	return &SignerAdded{proposalID: proposalID, signer: signer, timestamp: time.Now()}
}

func (e *SignerAdded) Type() EventType      { return EventSignerAdded }
func (e *SignerAdded) Timestamp() time.Time { return e.timestamp }
func (e *SignerAdded) ProposalID() uint64   { return e.proposalID }
func (e *SignerAdded) Signer() string       { return e.signer }

// SignerRemoved event when a signer leaves the set
type SignerRemoved struct {
	proposalID uint64
	signer     string
	timestamp  time.Time
}

func NewSignerRemoved(proposalID uint64, signer string) *SignerRemoved {
	return &SignerRemoved{proposalID: proposalID, signer: signer, timestamp: time.Now()}
}

func (e *SignerRemoved) Type() EventType      { return EventSignerRemoved }
func (e *SignerRemoved) Timestamp() time.Time { return e.timestamp }
func (e *SignerRemoved) ProposalID() uint64   { return e.proposalID }
func (e *SignerRemoved) Signer() string       { return e.signer }

// ProposalCreated event when a proposal enters the Proposed state
type ProposalCreated struct {
	proposalID uint64
	proposer   string
	digest     string
	timestamp  time.Time
}

func NewProposalCreated(proposalID uint64, proposer, digest string) *ProposalCreated {
	return &ProposalCreated{proposalID: proposalID, proposer: proposer, digest: digest, timestamp: time.Now()}
}

func (e *ProposalCreated) Type() EventType      { return EventProposalCreated }
func (e *ProposalCreated) Timestamp() time.Time { return e.timestamp }
func (e *ProposalCreated) ProposalID() uint64   { return e.proposalID }
func (e *ProposalCreated) Proposer() string     { return e.proposer }
func (e *ProposalCreated) Digest() string       { return e.digest }

// VoteCast event when a yes-vote is recorded
type VoteCast struct {
	proposalID uint64
	voter      string
	timestamp  time.Time
}

func NewVoteCast(proposalID uint64, voter string) *VoteCast {
	return &VoteCast{proposalID: proposalID, voter: voter, timestamp: time.Now()}
}

func (e *VoteCast) Type() EventType      { return EventVoteCast }
func (e *VoteCast) Timestamp() time.Time { return e.timestamp }
func (e *VoteCast) ProposalID() uint64   { return e.proposalID }
func (e *VoteCast) Voter() string        { return e.voter }

// VoteRetracted event when a yes-vote is withdrawn by its voter
type VoteRetracted struct {
	proposalID uint64
	voter      string
	timestamp  time.Time
}

func NewVoteRetracted(proposalID uint64, voter string) *VoteRetracted {
	return &VoteRetracted{proposalID: proposalID, voter: voter, timestamp: time.Now()}
}

func (e *VoteRetracted) Type() EventType      { return EventVoteRetracted }
func (e *VoteRetracted) Timestamp() time.Time { return e.timestamp }
func (e *VoteRetracted) ProposalID() uint64   { return e.proposalID }
func (e *VoteRetracted) Voter() string        { return e.voter }

// ProposalCancelled event when a proposal reaches the Cancelled state
type ProposalCancelled struct {
	proposalID uint64
	caller     string
	timestamp  time.Time
}

func NewProposalCancelled(proposalID uint64, caller string) *ProposalCancelled {
	return &ProposalCancelled{proposalID: proposalID, caller: caller, timestamp: time.Now()}
}

func (e *ProposalCancelled) Type() EventType      { return EventProposalCancelled }
func (e *ProposalCancelled) Timestamp() time.Time { return e.timestamp }
func (e *ProposalCancelled) ProposalID() uint64   { return e.proposalID }
func (e *ProposalCancelled) Caller() string       { return e.caller }

// ProposalExecuted event after the whole batch ran successfully
type ProposalExecuted struct {
	proposalID uint64
	validYes   int
	timestamp  time.Time
}

func NewProposalExecuted(proposalID uint64, validYes int) *ProposalExecuted {
	return &ProposalExecuted{proposalID: proposalID, validYes: validYes, timestamp: time.Now()}
}

func (e *ProposalExecuted) Type() EventType      { return EventProposalExecuted }
func (e *ProposalExecuted) Timestamp() time.Time { return e.timestamp }
func (e *ProposalExecuted) ProposalID() uint64   { return e.proposalID }
func (e *ProposalExecuted) ValidYesCount() int   { return e.validYes }

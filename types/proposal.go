package types

import (
	"crypto/sha256"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"mmw/jsonx"
)

// ProposalStatus is the lifecycle state of a proposal
type ProposalStatus int

const (
	// StatusNotStarted is the implicit default for unknown proposal ids
	StatusNotStarted ProposalStatus = iota
	StatusProposed
	StatusExecuted
	StatusCancelled
)

func (s ProposalStatus) String() string {
	switch s {
	case StatusProposed:
		return "proposed"
	case StatusExecuted:
		return "executed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "not_started"
	}
}

// Operation is one step of a proposal batch: an opaque call against a target
type Operation struct {
	Target  string       `json:"target"`
	Value   *uint256.Int `json:"value"`
	Payload []byte       `json:"payload"`
}

// Proposal is a batch of operations pending majority approval.
// YesVoters is the append-only historical yes-voter list; VotedYes is the
// membership flag map kept alongside it for O(1) lookup. Voters stay in the
// history even after losing signer status; only an explicit retraction
// removes them.
type Proposal struct {
	ID         uint64          `json:"id"`
	Proposer   string          `json:"proposer"`
	Expiration uint64          `json:"expiration"`
	Status     ProposalStatus  `json:"status"`
	Operations []Operation     `json:"operations"`
	YesVoters  []string        `json:"yes_voters"`
	VotedYes   map[string]bool `json:"voted_yes"`
}

// Digest returns a short content identifier for the proposal batch,
// used in logs and events
func (p *Proposal) Digest() string {
	hashData := struct {
		ID         uint64      `json:"id"`
		Proposer   string      `json:"proposer"`
		Expiration uint64      `json:"expiration"`
		Operations []Operation `json:"operations"`
	}{
		ID:         p.ID,
		Proposer:   p.Proposer,
		Expiration: p.Expiration,
		Operations: p.Operations,
	}

	jsonData, _ := jsonx.Marshal(hashData)
	hash := sha256.Sum256(jsonData)
	return base58.Encode(hash[:])
}

// Clone returns a deep copy. The execution engine snapshots proposals
// before running a batch so a failed batch can restore them untouched.
func (p *Proposal) Clone() *Proposal {
	cp := &Proposal{
		ID:         p.ID,
		Proposer:   p.Proposer,
		Expiration: p.Expiration,
		Status:     p.Status,
		Operations: make([]Operation, len(p.Operations)),
		YesVoters:  make([]string, len(p.YesVoters)),
		VotedYes:   make(map[string]bool, len(p.VotedYes)),
	}
	copy(cp.Operations, p.Operations)
	copy(cp.YesVoters, p.YesVoters)
	for voter, ok := range p.VotedYes {
		cp.VotedYes[voter] = ok
	}
	return cp
}

package wallet

import (
	"fmt"

	"mmw/crypto"
	"mmw/errors"
)

// DefaultMaxSigners bounds the signer set when no explicit bound is
// configured
const DefaultMaxSigners = 50

// GovProof is the capability token authorizing signer-set mutation. Only
// the execution engine constructs valid proofs, while running the batch of
// an approved proposal. A zero GovProof authorizes nothing.
type GovProof struct {
	proposalID uint64
	valid      bool
}

// ProposalID returns the id of the proposal whose execution carries this
// proof
func (p *GovProof) ProposalID() uint64 {
	if p == nil {
		return 0
	}
	return p.proposalID
}

func (p *GovProof) authorized() bool {
	return p != nil && p.valid
}

// SignerRegistry maintains the current authorized-signer set: an ordered
// slice for enumeration plus a membership set for O(1) lookup. Removal is
// swap-and-truncate; order is never semantically significant.
type SignerRegistry struct {
	signers    []string
	index      map[string]bool
	maxSigners int
}

// NewSignerRegistry builds the registry from the initial signer list.
// The list seeds the set directly; every later mutation needs a GovProof.
func NewSignerRegistry(initial []string, maxSigners int) (*SignerRegistry, error) {
	if maxSigners <= 0 {
		maxSigners = DefaultMaxSigners
	}
	if len(initial) == 0 {
		return nil, errors.NewError(errors.ErrCodeLastSigner, "signer set cannot be empty")
	}
	if len(initial) > maxSigners {
		return nil, errors.NewError(errors.ErrCodeSignerBound, fmt.Sprintf("signer count %d exceeds bound %d", len(initial), maxSigners))
	}

	r := &SignerRegistry{
		signers:    make([]string, 0, len(initial)),
		index:      make(map[string]bool, len(initial)),
		maxSigners: maxSigners,
	}
	for _, addr := range initial {
		if err := crypto.ValidateAddress(addr); err != nil {
			return nil, errors.NewError(errors.ErrCodeInvalidAddress, err.Error())
		}
		addr = crypto.NormalizeAddress(addr)
		if r.index[addr] {
			return nil, errors.NewError(errors.ErrCodeDuplicateSigner, "duplicate signer: "+addr)
		}
		r.signers = append(r.signers, addr)
		r.index[addr] = true
	}
	return r, nil
}

// IsSigner reports whether addr is currently in the set
func (r *SignerRegistry) IsSigner(addr string) bool {
	return r.index[crypto.NormalizeAddress(addr)]
}

// Count returns the current signer count
func (r *SignerRegistry) Count() int {
	return len(r.signers)
}

// List returns a copy of the signer sequence
func (r *SignerRegistry) List() []string {
	out := make([]string, len(r.signers))
	copy(out, r.signers)
	return out
}

// MaxSigners returns the configured signer bound
func (r *SignerRegistry) MaxSigners() int {
	return r.maxSigners
}

// AddSigner appends a new signer. Callable only through the governance
// execution path.
func (r *SignerRegistry) AddSigner(proof *GovProof, addr string) error {
	if !proof.authorized() {
		return errors.NewError(errors.ErrCodeNotGovernance, "signer set mutation requires the governance execution path")
	}
	if err := crypto.ValidateAddress(addr); err != nil {
		return errors.NewError(errors.ErrCodeInvalidAddress, err.Error())
	}
	addr = crypto.NormalizeAddress(addr)
	if r.index[addr] {
		return errors.NewError(errors.ErrCodeDuplicateSigner, "already a signer: "+addr)
	}
	if len(r.signers) == r.maxSigners {
		return errors.NewError(errors.ErrCodeSignerBound, fmt.Sprintf("signer bound %d reached", r.maxSigners))
	}

	r.signers = append(r.signers, addr)
	r.index[addr] = true
	return nil
}

// RemoveSigner swap-removes a signer. Callable only through the governance
// execution path; the last signer can never be removed.
func (r *SignerRegistry) RemoveSigner(proof *GovProof, addr string) error {
	if !proof.authorized() {
		return errors.NewError(errors.ErrCodeNotGovernance, "signer set mutation requires the governance execution path")
	}
	addr = crypto.NormalizeAddress(addr)
	if !r.index[addr] {
		return errors.NewError(errors.ErrCodeNotSigner, "not a signer: "+addr)
	}
	if len(r.signers) == 1 {
		return errors.NewError(errors.ErrCodeLastSigner, "cannot remove the last signer")
	}

	for i, s := range r.signers {
		if s == addr {
			last := len(r.signers) - 1
			r.signers[i] = r.signers[last]
			r.signers = r.signers[:last]
			break
		}
	}
	delete(r.index, addr)
	return nil
}

// snapshot captures the set for rollback by the execution engine
func (r *SignerRegistry) snapshot() ([]string, map[string]bool) {
	signers := make([]string, len(r.signers))
	copy(signers, r.signers)
	index := make(map[string]bool, len(r.index))
	for addr := range r.index {
		index[addr] = true
	}
	return signers, index
}

// restore rewinds the set to a snapshot taken before a failed batch
func (r *SignerRegistry) restore(signers []string, index map[string]bool) {
	r.signers = signers
	r.index = index
}

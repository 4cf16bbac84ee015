package wallet

import (
	"fmt"

	"mmw/crypto"
	"mmw/errors"
	"mmw/logx"
	"mmw/types"
)

// DelegatedValidator is the external per-signer validation capability for
// signers that do not hold a raw secp256k1 key. Given the digest and the
// raw signature blob it reports whether the signer's policy accepts it.
type DelegatedValidator interface {
	Validate(signer string, digest, signature []byte) (bool, error)
}

// ValidatorResolver looks up the delegated validation capability belonging
// to a signer, nil when the signer has none
type ValidatorResolver interface {
	Resolve(signer string) DelegatedValidator
}

// SignatureAuthorizer verifies that a claimed vote is authentic, via key
// recovery or delegated validation, and owns the per-signer nonce counters.
type SignatureAuthorizer struct {
	domain   types.DomainInfo
	registry *SignerRegistry
	resolver ValidatorResolver
	nonces   map[string]uint64
}

func NewSignatureAuthorizer(domain types.DomainInfo, registry *SignerRegistry, resolver ValidatorResolver) *SignatureAuthorizer {
	return &SignatureAuthorizer{
		domain:   domain,
		registry: registry,
		resolver: resolver,
		nonces:   make(map[string]uint64),
	}
}

// Nonce returns the next nonce expected from addr
func (a *SignatureAuthorizer) Nonce(addr string) uint64 {
	return a.nonces[crypto.NormalizeAddress(addr)]
}

// Domain returns the domain bound into every signed digest
func (a *SignatureAuthorizer) Domain() types.DomainInfo {
	return a.domain
}

// Authorize authenticates a signed (proposalID, support, nonce) tuple for
// claimedVoter and, on acceptance, consumes the nonce. The consumed nonce
// is returned so the caller can persist it. The nonce advances on
// acceptance even if the downstream ledger call later fails, making every
// signed tuple single-use. On rejection the nonce is untouched.
func (a *SignatureAuthorizer) Authorize(proposalID uint64, support bool, claimedVoter string, signature []byte) (uint64, error) {
	claimedVoter = crypto.NormalizeAddress(claimedVoter)
	if !a.registry.IsSigner(claimedVoter) {
		return 0, errors.NewError(errors.ErrCodeNotSigner, "claimed voter is not a current signer: "+claimedVoter)
	}

	nonce := a.nonces[claimedVoter]
	digest, err := crypto.VoteDigest(a.domain, proposalID, support, nonce)
	if err != nil {
		return 0, errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("failed to build vote digest: %v", err))
	}

	if !a.authenticate(claimedVoter, digest, signature) {
		return 0, errors.NewError(errors.ErrCodeInvalidSignature, fmt.Sprintf("signature does not authenticate %s for proposal %d", claimedVoter, proposalID))
	}

	a.nonces[claimedVoter] = nonce + 1
	return nonce, nil
}

func (a *SignatureAuthorizer) authenticate(claimedVoter string, digest, signature []byte) bool {
	recovered, err := crypto.RecoverAddress(digest, signature)
	if err == nil && crypto.NormalizeAddress(recovered) == claimedVoter {
		return true
	}

	if a.resolver == nil {
		return false
	}
	validator := a.resolver.Resolve(claimedVoter)
	if validator == nil {
		return false
	}
	return safeValidate(validator, claimedVoter, digest, signature)
}

// rewindNonce undoes the most recent consume for addr, used when the
// advanced counter could not be persisted. The rejected signature stays
// valid for a retry.
func (a *SignatureAuthorizer) rewindNonce(addr string, nonce uint64) {
	a.nonces[crypto.NormalizeAddress(addr)] = nonce
}

// loadNonces restores persisted nonce counters on startup
func (a *SignatureAuthorizer) loadNonces(nonces map[string]uint64) {
	for addr, nonce := range nonces {
		a.nonces[crypto.NormalizeAddress(addr)] = nonce
	}
}

// safeValidate collapses every failure mode of the external validation
// capability, a returned error or a panic included, to a plain false.
// The delegated call sits at a trust boundary and must never propagate a
// failure out of the authorization path.
func safeValidate(validator DelegatedValidator, signer string, digest, signature []byte) (accepted bool) {
	defer func() {
		if r := recover(); r != nil {
			logx.Warn("AUTH", fmt.Sprintf("delegated validator panicked for %s: %v", signer, r))
			accepted = false
		}
	}()

	valid, err := validator.Validate(signer, digest, signature)
	if err != nil {
		logx.Debug("AUTH", fmt.Sprintf("delegated validation failed for %s: %v", signer, err))
		return false
	}
	return valid
}

package wallet

import (
	"crypto/ed25519"
	"fmt"

	"mmw/crypto"
)

// PolicyKeyValidator is a delegated validation capability for signers that
// authorize through a registered ed25519 policy key instead of a raw
// secp256k1 wallet key. It doubles as a ValidatorResolver: signers without
// a registered policy key resolve to no capability.
type PolicyKeyValidator struct {
	keys map[string]ed25519.PublicKey
}

func NewPolicyKeyValidator() *PolicyKeyValidator {
	return &PolicyKeyValidator{
		keys: make(map[string]ed25519.PublicKey),
	}
}

// RegisterKey binds a policy key to a signer address
func (v *PolicyKeyValidator) RegisterKey(signer string, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("policy key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	v.keys[crypto.NormalizeAddress(signer)] = key
	return nil
}

// Resolve implements ValidatorResolver
func (v *PolicyKeyValidator) Resolve(signer string) DelegatedValidator {
	if _, ok := v.keys[crypto.NormalizeAddress(signer)]; !ok {
		return nil
	}
	return v
}

// Validate implements DelegatedValidator: the signature blob must be a
// plain ed25519 signature over the digest by the signer's policy key
func (v *PolicyKeyValidator) Validate(signer string, digest, signature []byte) (bool, error) {
	key, ok := v.keys[crypto.NormalizeAddress(signer)]
	if !ok {
		return false, fmt.Errorf("no policy key registered for %s", signer)
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(key, digest, signature), nil
}

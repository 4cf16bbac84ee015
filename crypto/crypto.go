package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// ZeroAddress is the null identity; it can never be a signer
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// AddressLength is the byte length of a wallet address
const AddressLength = 20

// Keccak256 returns the legacy Keccak-256 hash of the concatenated inputs
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// PubkeyToAddress derives the hex address from a secp256k1 public key:
// the last 20 bytes of the keccak hash of the uncompressed key without
// its format prefix byte
func PubkeyToAddress(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	hash := Keccak256(raw[1:])
	return "0x" + hex.EncodeToString(hash[len(hash)-AddressLength:])
}

// ValidateAddress checks the 0x-hex shape and rejects the zero address
func ValidateAddress(addr string) error {
	if err := ValidateAddressShape(addr); err != nil {
		return err
	}
	if strings.EqualFold(addr, ZeroAddress) {
		return fmt.Errorf("zero address is not a valid identity")
	}
	return nil
}

// ValidateAddressShape checks only the 0x-hex shape of an address
func ValidateAddressShape(addr string) error {
	if len(addr) != 2+2*AddressLength || !strings.HasPrefix(addr, "0x") {
		return fmt.Errorf("address must be 0x followed by %d hex characters", 2*AddressLength)
	}
	if _, err := hex.DecodeString(addr[2:]); err != nil {
		return fmt.Errorf("address contains invalid hex: %w", err)
	}
	return nil
}

// NormalizeAddress lowercases the hex portion so addresses compare as map keys
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// AddressBytes decodes a 0x-hex address into its raw 20 bytes
func AddressBytes(addr string) ([]byte, error) {
	if err := ValidateAddressShape(addr); err != nil {
		return nil, err
	}
	return hex.DecodeString(addr[2:])
}

// GeneratePrivateKey creates a fresh secp256k1 private key
func GeneratePrivateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PrivKeyFromHex parses a hex-encoded secp256k1 private key
func PrivKeyFromHex(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(strings.TrimPrefix(s, "0x")))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// SignDigest produces a 65-byte compact recoverable signature over digest
func SignDigest(priv *secp256k1.PrivateKey, digest []byte) []byte {
	return ecdsa.SignCompact(priv, digest, false)
}

// RecoverAddress recovers the signer address from a compact signature.
// Returns an error when the signature is malformed or recovery fails.
func RecoverAddress(digest, signature []byte) (string, error) {
	pub, _, err := ecdsa.RecoverCompact(signature, digest)
	if err != nil {
		return "", fmt.Errorf("signature recovery failed: %w", err)
	}
	return PubkeyToAddress(pub), nil
}

package crypto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"mmw/types"
)

func testDomain() types.DomainInfo {
	return types.DomainInfo{
		Name:          "mmw",
		Version:       "1",
		ChainID:       1,
		WalletAddress: "0x00000000000000000000000000000000000000aa",
	}
}

func TestValidateAddress(t *testing.T) {
	valid := "0x00000000000000000000000000000000000000aa"
	if err := ValidateAddress(valid); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}

	cases := []string{
		"",
		"0x",
		"00000000000000000000000000000000000000aa",
		"0x00000000000000000000000000000000000000a",    // too short
		"0x00000000000000000000000000000000000000aabb", // too long
		"0x00000000000000000000000000000000000000zz",   // not hex
		ZeroAddress,
		strings.ToUpper(ZeroAddress[2:]), // zero address without prefix
	}
	for _, addr := range cases {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("expected rejection of %q", addr)
		}
	}

	// Shape validation alone accepts the zero address
	if err := ValidateAddressShape(ZeroAddress); err != nil {
		t.Errorf("zero address has a valid shape: %v", err)
	}
}

func TestNormalizeAddress(t *testing.T) {
	mixed := "0x00000000000000000000000000000000000000AB"
	if got := NormalizeAddress(mixed); got != strings.ToLower(mixed) {
		t.Errorf("expected lowercased address, got %s", got)
	}
}

func TestSignAndRecover(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := PubkeyToAddress(priv.PubKey())
	if err := ValidateAddress(addr); err != nil {
		t.Fatalf("derived address is invalid: %v", err)
	}

	digest := Keccak256([]byte("payload"))
	sig := SignDigest(priv, digest)
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte compact signature, got %d", len(sig))
	}

	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if recovered != addr {
		t.Errorf("expected %s, got %s", addr, recovered)
	}

	// A different digest recovers a different key, not an error
	other, err := RecoverAddress(Keccak256([]byte("other")), sig)
	if err == nil && other == addr {
		t.Error("signature transferred to a different digest")
	}

	if _, err := RecoverAddress(digest, []byte{0x01}); err == nil {
		t.Error("expected error for malformed signature")
	}
}

func TestPrivKeyFromHex(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := PrivKeyFromHex("0x" + hex.EncodeToString(priv.Serialize()))
	if err != nil {
		t.Fatal(err)
	}
	if PubkeyToAddress(parsed.PubKey()) != PubkeyToAddress(priv.PubKey()) {
		t.Error("parsed key derives a different address")
	}

	if _, err := PrivKeyFromHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := PrivKeyFromHex("abcd"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestVoteDigestDeterminism(t *testing.T) {
	d1, err := VoteDigest(testDomain(), 7, true, 3)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := VoteDigest(testDomain(), 7, true, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("identical inputs produced different digests")
	}
	if len(d1) != 32 {
		t.Errorf("expected 32-byte digest, got %d", len(d1))
	}
}

func TestVoteDigestSeparation(t *testing.T) {
	base, err := VoteDigest(testDomain(), 7, true, 3)
	if err != nil {
		t.Fatal(err)
	}

	variants := []types.DomainInfo{}
	d := testDomain()
	d.ChainID = 2
	variants = append(variants, d)
	d = testDomain()
	d.WalletAddress = "0x00000000000000000000000000000000000000bb"
	variants = append(variants, d)
	d = testDomain()
	d.Name = "other"
	variants = append(variants, d)
	d = testDomain()
	d.Version = "2"
	variants = append(variants, d)

	for i, domain := range variants {
		got, err := VoteDigest(domain, 7, true, 3)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(base, got) {
			t.Errorf("variant %d collided with the base domain", i)
		}
	}

	// Every tuple field separates too
	if got, _ := VoteDigest(testDomain(), 8, true, 3); bytes.Equal(base, got) {
		t.Error("proposal id does not separate digests")
	}
	if got, _ := VoteDigest(testDomain(), 7, false, 3); bytes.Equal(base, got) {
		t.Error("support flag does not separate digests")
	}
	if got, _ := VoteDigest(testDomain(), 7, true, 4); bytes.Equal(base, got) {
		t.Error("nonce does not separate digests")
	}
}

func TestVoteDigestRejectsBadWalletAddress(t *testing.T) {
	d := testDomain()
	d.WalletAddress = "nope"
	if _, err := VoteDigest(d, 1, true, 0); err == nil {
		t.Error("expected error for malformed wallet address")
	}
}

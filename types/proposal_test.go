package types

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
)

func proposalFuzzer(seed int64) *fuzz.Fuzzer {
	return fuzz.NewWithSeed(seed).NilChance(0).NumElements(1, 5).Funcs(
		func(v **uint256.Int, c fuzz.Continue) {
			*v = uint256.NewInt(c.Uint64())
		},
		func(s *ProposalStatus, c fuzz.Continue) {
			*s = ProposalStatus(c.Intn(4))
		},
	)
}

func TestProposalCloneIsDeep(t *testing.T) {
	f := proposalFuzzer(1)

	for i := 0; i < 50; i++ {
		var original Proposal
		f.Fuzz(&original)

		clone := original.Clone()

		if clone.ID != original.ID || clone.Proposer != original.Proposer ||
			clone.Expiration != original.Expiration || clone.Status != original.Status {
			t.Fatal("clone differs from original")
		}
		if len(clone.Operations) != len(original.Operations) ||
			len(clone.YesVoters) != len(original.YesVoters) ||
			len(clone.VotedYes) != len(original.VotedYes) {
			t.Fatal("clone collection sizes differ")
		}

		// Mutating the clone must not leak into the original
		if len(clone.YesVoters) > 0 {
			before := original.YesVoters[0]
			clone.YesVoters[0] = "mutated"
			if original.YesVoters[0] != before {
				t.Fatal("YesVoters slice is shared")
			}
		}
		clone.VotedYes["mutated"] = true
		if original.VotedYes["mutated"] {
			t.Fatal("VotedYes map is shared")
		}
		if len(clone.Operations) > 0 {
			before := original.Operations[0].Target
			clone.Operations[0].Target = "mutated"
			if original.Operations[0].Target != before {
				t.Fatal("Operations slice is shared")
			}
		}
	}
}

func TestProposalDigest(t *testing.T) {
	p := &Proposal{
		ID:         1,
		Proposer:   "0x0000000000000000000000000000000000000001",
		Expiration: 1_700_000_000,
		Operations: []Operation{{Target: "0x0000000000000000000000000000000000000002", Value: uint256.NewInt(5)}},
	}

	d1 := p.Digest()
	d2 := p.Digest()
	if d1 != d2 {
		t.Error("digest is not deterministic")
	}
	if d1 == "" {
		t.Error("digest is empty")
	}

	// Vote state does not shift the content digest
	p.YesVoters = []string{"0x0000000000000000000000000000000000000003"}
	p.Status = StatusExecuted
	if p.Digest() != d1 {
		t.Error("digest depends on mutable vote state")
	}

	other := p.Clone()
	other.ID = 2
	if other.Digest() == d1 {
		t.Error("different proposals share a digest")
	}
}

func TestProposalStatusString(t *testing.T) {
	cases := map[ProposalStatus]string{
		StatusNotStarted:  "not_started",
		StatusProposed:    "proposed",
		StatusExecuted:    "executed",
		StatusCancelled:   "cancelled",
		ProposalStatus(9): "not_started",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("status %d: expected %s, got %s", status, want, got)
		}
	}
}

func TestGovernanceActionRoundTrip(t *testing.T) {
	action := &GovernanceAction{Action: GovAddSigner, Signer: "0x0000000000000000000000000000000000000001"}
	payload, err := EncodeGovernanceAction(action)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := DecodeGovernanceAction(payload)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Action != action.Action || decoded.Signer != action.Signer {
		t.Error("decoded action differs")
	}

	if _, err := EncodeGovernanceAction(nil); err == nil {
		t.Error("expected error for nil action")
	}
	if _, err := EncodeGovernanceAction(&GovernanceAction{Action: "transfer"}); err == nil {
		t.Error("expected error for unknown action")
	}
	if _, err := DecodeGovernanceAction([]byte(`{"action":"transfer"}`)); err == nil {
		t.Error("expected error for unknown decoded action")
	}
	if _, err := DecodeGovernanceAction([]byte("not-json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

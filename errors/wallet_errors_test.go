package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"mmw/jsonx"
)

func TestWalletErrorRoundTrip(t *testing.T) {
	err := NewError(ErrCodeNotSigner, "voter is not a current signer")

	// The message marshals as JSON so it survives transport boundaries
	var decoded WalletError
	if uerr := jsonx.Unmarshal([]byte(err.Error()), &decoded); uerr != nil {
		t.Fatalf("error string is not valid JSON: %v", uerr)
	}
	if decoded.Code != ErrCodeNotSigner {
		t.Errorf("expected %s, got %s", ErrCodeNotSigner, decoded.Code)
	}
	if decoded.Message != "voter is not a current signer" {
		t.Errorf("unexpected message: %s", decoded.Message)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewError(ErrCodeAlreadyVoted, "x")); got != ErrCodeAlreadyVoted {
		t.Errorf("expected %s, got %s", ErrCodeAlreadyVoted, got)
	}

	// Wrapped errors still expose their code
	wrapped := fmt.Errorf("while voting: %w", NewError(ErrCodeProposalExpired, "x"))
	if !IsCode(wrapped, ErrCodeProposalExpired) {
		t.Error("expected code to survive wrapping")
	}

	if got := CodeOf(stderrors.New("plain")); got != ErrCodeInternal {
		t.Errorf("expected %s for foreign errors, got %s", ErrCodeInternal, got)
	}
	if IsCode(nil, ErrCodeNotSigner) {
		t.Error("nil error should carry no code")
	}
}

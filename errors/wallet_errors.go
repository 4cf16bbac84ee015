package errors

import (
	"errors"

	"mmw/jsonx"
)

// WalletErrorCode represents standardized error codes for wallet operations
type WalletErrorCode string

const (
	// General errors
	ErrCodeInternal WalletErrorCode = "internal_error"

	// Authorization errors: rejected before any state change
	ErrCodeNotSigner     WalletErrorCode = "not_signer"
	ErrCodeNotGovernance WalletErrorCode = "not_governance_path"
	ErrCodeNotCanceller  WalletErrorCode = "not_canceller"

	// State errors: wrong lifecycle position for the requested action
	ErrCodeWrongStatus     WalletErrorCode = "wrong_proposal_status"
	ErrCodeProposalExpired WalletErrorCode = "proposal_expired"
	ErrCodeUnknownProposal WalletErrorCode = "proposal_not_found"

	// Validation errors: malformed input, nothing is written
	ErrCodeEmptyBatch      WalletErrorCode = "empty_batch"
	ErrCodeInvalidAddress  WalletErrorCode = "invalid_address"
	ErrCodeDuplicateSigner WalletErrorCode = "duplicate_signer"
	ErrCodeSignerBound     WalletErrorCode = "signer_bound_exceeded"
	ErrCodeLastSigner      WalletErrorCode = "last_signer"
	ErrCodeBadExpiration   WalletErrorCode = "expiration_not_future"
	ErrCodeAlreadyVoted    WalletErrorCode = "already_voted"
	ErrCodeNoVote          WalletErrorCode = "no_vote_to_retract"

	// Signature errors: nonce untouched, nothing recorded
	ErrCodeInvalidSignature WalletErrorCode = "invalid_signature"

	// Execution errors: whole batch aborted and rolled back
	ErrCodeInsufficientVotes WalletErrorCode = "insufficient_votes"
	ErrCodeExecutionFailed   WalletErrorCode = "execution_failed"
)

// WalletError represents a standardized wallet error
type WalletError struct {
	Code    WalletErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *WalletError) Error() string {
	data, _ := jsonx.Marshal(WalletError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(data)
}

// NewError creates a new WalletError and returns it as error interface
func NewError(code WalletErrorCode, message string) error {
	return &WalletError{
		Code:    code,
		Message: message,
	}
}

// CodeOf extracts the wallet error code from err, or ErrCodeInternal
// when err is not a WalletError.
func CodeOf(err error) WalletErrorCode {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given wallet error code.
func IsCode(err error, code WalletErrorCode) bool {
	return CodeOf(err) == code
}

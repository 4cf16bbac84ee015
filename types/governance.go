package types

import (
	"fmt"

	"mmw/jsonx"
)

// Governance actions a proposal operation may carry when targeting the
// wallet's own address. They run under the engine's governance proof.
const (
	GovAddSigner      = "add_signer"
	GovRemoveSigner   = "remove_signer"
	GovCancelProposal = "cancel_proposal"
)

// GovernanceAction is the decoded payload of a self-targeted operation
type GovernanceAction struct {
	Action     string `json:"action"`
	Signer     string `json:"signer,omitempty"`
	ProposalID uint64 `json:"proposal_id,omitempty"`
}

// EncodeGovernanceAction marshals an action into an operation payload
func EncodeGovernanceAction(action *GovernanceAction) ([]byte, error) {
	if action == nil {
		return nil, fmt.Errorf("action cannot be nil")
	}
	switch action.Action {
	case GovAddSigner, GovRemoveSigner, GovCancelProposal:
	default:
		return nil, fmt.Errorf("unknown governance action: %s", action.Action)
	}
	return jsonx.Marshal(action)
}

// DecodeGovernanceAction unmarshals an operation payload into an action
func DecodeGovernanceAction(payload []byte) (*GovernanceAction, error) {
	var action GovernanceAction
	if err := jsonx.Unmarshal(payload, &action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal governance action: %w", err)
	}
	switch action.Action {
	case GovAddSigner, GovRemoveSigner, GovCancelProposal:
		return &action, nil
	default:
		return nil, fmt.Errorf("unknown governance action: %s", action.Action)
	}
}

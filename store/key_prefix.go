package store

// Declare database key prefix for objects
const (
	PrefixProposal = "proposal:"
	PrefixNonce    = "nonce:"
	PrefixInstance = "instance:"

	KeySigners        = "signers"
	KeyNextProposalID = "meta:next_proposal_id"
)

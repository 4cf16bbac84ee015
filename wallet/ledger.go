package wallet

import (
	"fmt"
	"time"

	"mmw/errors"
	"mmw/types"
)

// VoteLedger records yes-votes per proposal. The historical yes-voter list
// is append-only across membership churn: a removed signer's vote stays in
// the history and regains weight if the signer is re-added. Retraction is
// the one permitted history edit, since it is the voter's own change of
// mind rather than a membership change.
type VoteLedger struct {
	registry *SignerRegistry
}

func NewVoteLedger(registry *SignerRegistry) *VoteLedger {
	return &VoteLedger{registry: registry}
}

// CastYes appends voter to the proposal's historical yes-voter list
func (l *VoteLedger) CastYes(proposal *types.Proposal, voter string, now time.Time) error {
	if err := checkVotable(proposal, now); err != nil {
		return err
	}
	if proposal.VotedYes[voter] {
		return errors.NewError(errors.ErrCodeAlreadyVoted, fmt.Sprintf("%s already voted yes on proposal %d", voter, proposal.ID))
	}

	if proposal.VotedYes == nil {
		proposal.VotedYes = make(map[string]bool)
	}
	proposal.YesVoters = append(proposal.YesVoters, voter)
	proposal.VotedYes[voter] = true
	return nil
}

// RetractYes clears the voter's flag and swap-removes it from the history
func (l *VoteLedger) RetractYes(proposal *types.Proposal, voter string, now time.Time) error {
	if err := checkVotable(proposal, now); err != nil {
		return err
	}
	if !proposal.VotedYes[voter] {
		return errors.NewError(errors.ErrCodeNoVote, fmt.Sprintf("%s has no yes-vote to retract on proposal %d", voter, proposal.ID))
	}

	for i, v := range proposal.YesVoters {
		if v == voter {
			last := len(proposal.YesVoters) - 1
			proposal.YesVoters[i] = proposal.YesVoters[last]
			proposal.YesVoters = proposal.YesVoters[:last]
			break
		}
	}
	delete(proposal.VotedYes, voter)
	return nil
}

// HasVotedYes reports whether voter is currently in the yes-voter history
func (l *VoteLedger) HasVotedYes(proposal *types.Proposal, voter string) bool {
	return proposal.VotedYes[voter]
}

// YesVoterHistory returns the historical yes-voter list, ex-signers included
func (l *VoteLedger) YesVoterHistory(proposal *types.Proposal) []string {
	out := make([]string, len(proposal.YesVoters))
	copy(out, proposal.YesVoters)
	return out
}

// ValidYesCount re-filters the history through the current signer set at
// call time. Never cached: two causally independent calls (a membership
// change and a vote) may be ordered either way, and the count must be
// correct under both orderings.
func (l *VoteLedger) ValidYesCount(proposal *types.Proposal) int {
	count := 0
	for _, voter := range proposal.YesVoters {
		if l.registry.IsSigner(voter) {
			count++
		}
	}
	return count
}

func checkVotable(proposal *types.Proposal, now time.Time) error {
	if proposal.Status != types.StatusProposed {
		return errors.NewError(errors.ErrCodeWrongStatus, fmt.Sprintf("proposal %d is %s, not proposed", proposal.ID, proposal.Status))
	}
	if uint64(now.Unix()) > proposal.Expiration {
		return errors.NewError(errors.ErrCodeProposalExpired, fmt.Sprintf("proposal %d expired", proposal.ID))
	}
	return nil
}

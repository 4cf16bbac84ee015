package crypto

import (
	"encoding/binary"

	"mmw/types"
)

// Structured-digest prefix, separating signed wallet payloads from plain
// message signatures
var digestPrefix = []byte{0x19, 0x01}

// DomainSeparator hashes the four domain fields binding a signature to one
// protocol version, network and wallet instance
func DomainSeparator(domain types.DomainInfo) ([]byte, error) {
	addr, err := AddressBytes(domain.WalletAddress)
	if err != nil {
		return nil, err
	}
	chainID := make([]byte, 8)
	binary.BigEndian.PutUint64(chainID, domain.ChainID)
	return Keccak256(
		Keccak256([]byte(domain.Name)),
		Keccak256([]byte(domain.Version)),
		chainID,
		addr,
	), nil
}

// VoteDigest builds the digest signed for voteOnBehalfOf: the domain
// separator plus exactly (proposalID, support, nonce)
func VoteDigest(domain types.DomainInfo, proposalID uint64, support bool, nonce uint64) ([]byte, error) {
	separator, err := DomainSeparator(domain)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 17)
	binary.BigEndian.PutUint64(payload[0:8], proposalID)
	if support {
		payload[8] = 1
	}
	binary.BigEndian.PutUint64(payload[9:17], nonce)

	return Keccak256(digestPrefix, separator, Keccak256(payload)), nil
}

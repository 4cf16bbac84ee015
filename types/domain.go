package types

// DomainInfo binds signed vote payloads to one wallet instance. All four
// fields enter the domain separator, so a signature can never be replayed
// against another network or another wallet.
type DomainInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	ChainID       uint64 `json:"chain_id"`
	WalletAddress string `json:"wallet_address"`
}

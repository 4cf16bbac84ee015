package types

// InstanceRecord describes one wallet instance produced by the factory
type InstanceRecord struct {
	Address   string   `json:"address"`
	Creator   string   `json:"creator"`
	Salt      string   `json:"salt,omitempty"`
	Signers   []string `json:"signers"`
	ChainID   uint64   `json:"chain_id"`
	CreatedAt uint64   `json:"created_at"`
}

package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmw/crypto"
	"mmw/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWalletConfig(t *testing.T) {
	yml := `config:
  chain_id: 7
  domain_name: mmw
  domain_version: "1"
  wallet_address: "0x00000000000000000000000000000000000000aa"
  max_signers: 10
  signers:
    - "0x0000000000000000000000000000000000000001"
    - "0x0000000000000000000000000000000000000002"
  store:
    type: bolt
    directory: /tmp/mmw-test
`
	path := writeFile(t, t.TempDir(), "wallet.yml", yml)

	cfg, err := LoadWalletConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.ChainID)
	assert.Equal(t, "mmw", cfg.DomainName)
	assert.Equal(t, 10, cfg.MaxSigners)
	assert.Len(t, cfg.Signers, 2)
	assert.Equal(t, store.BoltStoreType, cfg.Store.Type)
	require.NoError(t, cfg.Store.Validate())

	// Default RPC address fills in when the file omits it
	assert.Equal(t, ":8645", cfg.RPCAddr)

	_, err = LoadWalletConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "bad.yml", "config: [not a map")
	_, err = LoadWalletConfig(bad)
	assert.Error(t, err)
}

func TestLoadRPCConfig(t *testing.T) {
	ini := `[rpc]
request_timeout_ms = 5000
max_batch_ops = 16
`
	path := writeFile(t, t.TempDir(), "server.ini", ini)

	cfg, err := LoadRPCConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.RequestTimeoutMs)
	assert.Equal(t, 16, cfg.MaxBatchOps)

	// Missing keys fall back to defaults
	partial := writeFile(t, t.TempDir(), "partial.ini", "[rpc]\nmax_batch_ops = 8\n")
	cfg, err = LoadRPCConfig(partial)
	require.NoError(t, err)
	assert.Equal(t, DefaultRPCConfig().RequestTimeoutMs, cfg.RequestTimeoutMs)
	assert.Equal(t, 8, cfg.MaxBatchOps)
}

func TestLoadSecpPrivKey(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := writeFile(t, t.TempDir(), "key.hex", hex.EncodeToString(priv.Serialize()))

	loaded, err := LoadSecpPrivKey(path)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PubKey()), crypto.PubkeyToAddress(loaded.PubKey()))

	_, err = LoadSecpPrivKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: hackathon-platform\n"))
	require.NoError(t, err)

	assert.Equal(t, PlaceholderRPCURL, cfg.Ledger.RPCURL)
	assert.Equal(t, PlaceholderContractAddress, cfg.Ledger.ContractAddress)
	assert.Equal(t, int64(11155111), cfg.Ledger.ChainID)
	assert.Equal(t, 10*time.Second, cfg.Ledger.CallTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Ledger.ReceiptTimeout)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.False(t, cfg.Server.DistinctErrors)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 4, cfg.Query.FetchConcurrency)
	assert.Equal(t, "http://localhost:5000/api", cfg.Client.APIBaseURL)

	require.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateLedger())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
ledger:
  rpc_url: http://localhost:8545
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  chain_id: 31337
  call_timeout: 3s
server:
  port: 8080
  distinct_errors: true
storage:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.Ledger.RPCURL)
	assert.Equal(t, int64(31337), cfg.Ledger.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Ledger.CallTimeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.DistinctErrors)
	assert.False(t, cfg.Storage.Enabled)

	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateLedger())
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.ContractAddress().Hex())
}

func TestLoadEnvironmentAliases(t *testing.T) {
	t.Setenv("RPC_URL", "http://node.internal:4444")
	t.Setenv("CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("CHAIN_ID", "31")
	t.Setenv("PORT", "7070")
	t.Setenv("HACKATHON_LOGGING_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://node.internal:4444", cfg.Ledger.RPCURL)
	assert.Equal(t, int64(31), cfg.Ledger.ChainID)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.ValidateLedger())
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"port zero":          func(c *Config) { c.Server.Port = 0 },
		"port too high":      func(c *Config) { c.Server.Port = 70000 },
		"no call timeout":    func(c *Config) { c.Ledger.CallTimeout = 0 },
		"no concurrency":     func(c *Config) { c.Query.FetchConcurrency = 0 },
		"storage without db": func(c *Config) { c.Storage.ConnectionString = "" },
	}
	for name, mutate := range cases {
		c := *cfg
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestValidateLedger(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	cfg.Ledger.RPCURL = "http://localhost:8545"
	cfg.Ledger.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	require.NoError(t, cfg.ValidateLedger())

	bad := *cfg
	bad.Ledger.ContractAddress = "0x1234"
	assert.ErrorContains(t, bad.ValidateLedger(), "CONTRACT_ADDRESS")

	bad = *cfg
	bad.Ledger.RPCURL = ""
	assert.ErrorContains(t, bad.ValidateLedger(), "RPC_URL")

	bad = *cfg
	bad.Ledger.ChainID = 0
	assert.Error(t, bad.ValidateLedger())
}

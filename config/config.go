// Package config loads the engine's bootstrap configuration: the listen
// address for the harness HTTP façade, the data directory for the LevelDB
// store, and the genesis values the first run seeds into the on-chain
// Config singleton (spec.md §3 Config, §4 admin "initialize"). Kept close
// to the teacher's create-default-on-first-run TOML loader.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"lazorkit/crypto"
)

// Config is the process-level bootstrap configuration, distinct from the
// on-chain types.Config it seeds.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	AuthorityKey  string `toml:"AuthorityKey"`

	CreateWalletFee uint64 `toml:"CreateWalletFee"`
	ExecuteFee      uint64 `toml:"ExecuteFee"`

	// DefaultPolicyProgram is the bech32 "lzprog1..." address of the
	// default_policy program registered at genesis (spec.md §4.9 invariant).
	DefaultPolicyProgram string `toml:"DefaultPolicyProgram"`

	// AdminAuthEnabled gates /v1/admin/* behind a bearer JWT when true.
	AdminAuthEnabled bool   `toml:"AdminAuthEnabled"`
	AdminHMACSecret  string `toml:"AdminHMACSecret"`
	AdminAuthIssuer  string `toml:"AdminAuthIssuer"`

	// Environment is decoded from the config file but not read by lazorkitd,
	// which takes its log environment label from LAZORKIT_ENV.
	Environment string `toml:"Environment"`
}

// Load reads path, creating a default configuration file (with a freshly
// generated authority key) on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.AuthorityKey == "" {
		return nil, fmt.Errorf("config: AuthorityKey must not be empty")
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	// Derive a deterministic placeholder default-policy program address so a
	// freshly generated config is immediately bootable; operators running a
	// real default_policy program override this before going to production.
	seed := sha256.Sum256([]byte("lazorkit-default-policy-program"))
	defaultPolicy := crypto.MustNewAddress(crypto.ProgramPrefix, seed[:])

	cfg := &Config{
		ListenAddress:        ":8080",
		DataDir:              "./lazorkit-data",
		AuthorityKey:         hex.EncodeToString(key.Bytes()),
		CreateWalletFee:      0,
		ExecuteFee:           0,
		DefaultPolicyProgram: defaultPolicy.String(),
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AuthorityPrivateKey decodes the configured authority signing key.
func (c *Config) AuthorityPrivateKey() (*crypto.PrivateKey, error) {
	raw, err := hex.DecodeString(c.AuthorityKey)
	if err != nil {
		return nil, fmt.Errorf("config: invalid AuthorityKey: %w", err)
	}
	return crypto.PrivateKeyFromBytes(raw)
}

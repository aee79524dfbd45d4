// Package config resolves the watchtower's startup configuration from
// environment variables. It follows the same go-flags-driven
// struct-tag convention the daemon's own loadConfig uses, with this
// daemon's WT_-prefixed variables alongside the literally-named
// STACKS_NETWORK and STACKS_API_URL.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/obycode/stackflow-sub001/internal/sip018"
)

// Config is the fully resolved set of startup options.
type Config struct {
	Host             string `long:"host" env:"WT_HOST" default:"0.0.0.0"`
	Port             int    `long:"port" env:"WT_PORT" default:"8787"`
	DBFile           string `long:"db-file" env:"WT_DB_FILE" default:"./data/watchtower-state.db"`
	MaxRecentEvents  int    `long:"max-recent-events" env:"WT_MAX_RECENT_EVENTS" default:"500"`
	ContractsCSV     string `long:"contracts" env:"WT_CONTRACTS"`
	PrincipalsCSV    string `long:"principals" env:"WT_PRINCIPALS"`
	StacksNetwork    string `long:"stacks-network" env:"STACKS_NETWORK" default:"devnet"`
	StacksAPIURL     string `long:"stacks-api-url" env:"STACKS_API_URL"`
	SignerKeyHex     string `long:"signer-key" env:"WT_SIGNER_KEY"`
	ProducerPrincipalOverride string `long:"producer-principal" env:"WT_PRODUCER_PRINCIPAL"`
	ProducerSignerMode        string `long:"producer-signer-mode" env:"WT_PRODUCER_SIGNER_MODE" default:"local-key"`
	MessageVersion            string `long:"stackflow-message-version" env:"WT_STACKFLOW_MESSAGE_VERSION" default:"0.6.0"`
	SignatureVerifierMode     string `long:"signature-verifier-mode" env:"WT_SIGNATURE_VERIFIER_MODE" default:"readonly"`
	DisputeExecutorMode       string `long:"dispute-executor-mode" env:"WT_DISPUTE_EXECUTOR_MODE" default:"auto"`
	DisputeOnlyBeneficial     bool   `long:"dispute-only-beneficial" env:"WT_DISPUTE_ONLY_BENEFICIAL"`
	LogRawEvents              bool   `long:"log-raw-events" env:"WT_LOG_RAW_EVENTS"`

	// ContractID is the pipe contract identifier the readonly verifier
	// calls into; it is required whenever SignatureVerifierMode is
	// "readonly" but is otherwise unused.
	ContractID string `long:"contract-id" env:"WT_CONTRACT_ID"`
}

var stacksDefaultAPIURL = map[string]string{
	"mainnet": "https://api.hiro.so",
	"testnet": "https://api.testnet.hiro.so",
	"devnet":  "http://localhost:3999",
	"mocknet": "http://localhost:3999",
}

// maxWatchedPrincipals is the hard cap placed on WT_PRINCIPALS,
// guarding against a runaway CSV turning the watch set into a full
// table scan substitute.
const maxWatchedPrincipals = 100

// Load resolves a Config from the process environment, applying the
// same env-first-then-default resolution go-flags performs for a
// struct tagged with `env`.
func Load() (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default|flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			return nil, err
		}
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}

	if cfg.StacksAPIURL == "" {
		cfg.StacksAPIURL = stacksDefaultAPIURL[cfg.StacksNetwork]
	}
	if cfg.SignerKeyHex == "" {
		cfg.SignerKeyHex = os.Getenv("WT_PRODUCER_KEY")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StacksNetwork {
	case "mainnet", "testnet", "devnet", "mocknet":
	default:
		return fmt.Errorf("unrecognized STACKS_NETWORK %q", c.StacksNetwork)
	}

	switch c.ProducerSignerMode {
	case "local-key", "kms":
	default:
		return fmt.Errorf("unrecognized producer signer mode %q", c.ProducerSignerMode)
	}

	switch c.SignatureVerifierMode {
	case "readonly", "accept-all", "reject-all":
	default:
		return fmt.Errorf("unrecognized signature verifier mode %q", c.SignatureVerifierMode)
	}
	if c.SignatureVerifierMode == "readonly" && c.ContractID == "" {
		return fmt.Errorf("WT_CONTRACT_ID is required when signature-verifier-mode=readonly")
	}

	switch c.DisputeExecutorMode {
	case "auto", "noop", "mock":
	default:
		return fmt.Errorf("unrecognized dispute executor mode %q", c.DisputeExecutorMode)
	}

	if len(c.WatchedPrincipals()) > maxWatchedPrincipals {
		return fmt.Errorf("WT_PRINCIPALS lists more than %d principals", maxWatchedPrincipals)
	}

	return nil
}

// WatchedContracts parses ContractsCSV into a membership set; empty
// means watch all.
func (c *Config) WatchedContracts() map[string]bool {
	return csvSet(c.ContractsCSV)
}

// WatchedPrincipals parses PrincipalsCSV into a deduplicated membership
// set; empty means watch all.
func (c *Config) WatchedPrincipals() map[string]bool {
	return csvSet(c.PrincipalsCSV)
}

func csvSet(csv string) map[string]bool {
	if csv == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out[part] = true
		}
	}
	return out
}

// SigningDomain builds the sip018.Domain this deployment signs with.
func (c *Config) SigningDomain() sip018.Domain {
	return sip018.Domain{
		Name:    "StackFlow",
		Version: c.MessageVersion,
		ChainID: sip018.ChainID(networkOf(c.StacksNetwork)),
	}
}

func networkOf(s string) sip018.Network {
	switch s {
	case "mainnet":
		return sip018.Mainnet
	case "testnet":
		return sip018.Testnet
	case "mocknet":
		return sip018.Mocknet
	default:
		return sip018.Devnet
	}
}

// Addr formats the resolved bind address for net/http.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Command watchtower is the daemon entry point: it resolves
// configuration, opens the state store, wires the verifier/executor/
// signer backends the configuration selects, and starts the HTTP
// surface, using a nested "real main" that returns an error so deferred
// cleanups still run on a fatal startup error, with os.Exit(1) reserved
// for the outer main.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/obycode/stackflow-sub001/internal/config"
	"github.com/obycode/stackflow-sub001/internal/executor"
	"github.com/obycode/stackflow-sub001/internal/httpapi"
	"github.com/obycode/stackflow-sub001/internal/producer"
	"github.com/obycode/stackflow-sub001/internal/signerbackend"
	"github.com/obycode/stackflow-sub001/internal/store"
	"github.com/obycode/stackflow-sub001/internal/verifier"
	"github.com/obycode/stackflow-sub001/internal/watchtower"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

func watchtowerMain() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.LogRawEvents {
		wtlog.SetLevel(0) // btclog.TraceLvl
	}

	wtlog.CFGLog.Infof("starting watchtower: host=%s port=%d db=%s", cfg.Host, cfg.Port, cfg.DBFile)

	st, err := store.Open(cfg.DBFile, cfg.MaxRecentEvents)
	if err != nil {
		return fmt.Errorf("unable to open state store: %w", err)
	}
	defer st.Close()

	vfy, err := buildVerifier(cfg)
	if err != nil {
		return err
	}

	exec := buildExecutor(cfg)

	wt := watchtower.New(st, vfy, exec, watchtower.Config{
		WatchedContracts:      cfg.WatchedContracts(),
		WatchedPrincipals:     cfg.WatchedPrincipals(),
		DisputeOnlyBeneficial: cfg.DisputeOnlyBeneficial,
	})

	var prod *producer.Producer
	if cfg.ProducerPrincipalOverride != "" {
		signer, err := buildSigner(cfg)
		if err != nil {
			return err
		}
		prod = producer.New(wt, signer, producer.Config{
			OperatorPrincipal: cfg.ProducerPrincipalOverride,
			Domain:            cfg.SigningDomain(),
		})
	} else {
		wtlog.CFGLog.Warnf("WT_PRODUCER_PRINCIPAL unset: signer service endpoints will return signer-disabled")
	}

	srv := httpapi.New(cfg.Addr(), wt, prod)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("unable to start HTTP surface: %w", err)
	}
	defer srv.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	wtlog.CFGLog.Infof("shutdown signal received")

	if err := srv.Stop(); err != nil {
		wtlog.CFGLog.Errorf("error during HTTP shutdown: %v", err)
	}
	wtlog.CFGLog.Infof("shutdown complete")
	return nil
}

func buildVerifier(cfg *config.Config) (verifier.Verifier, error) {
	switch cfg.SignatureVerifierMode {
	case "accept-all":
		return verifier.AcceptAll{}, nil
	case "reject-all":
		return verifier.RejectAll{Reason: "signature verification is administratively frozen"}, nil
	case "readonly":
		return verifier.NewReadonly(cfg.StacksAPIURL, cfg.ContractID), nil
	default:
		return nil, fmt.Errorf("unrecognized signature verifier mode %q", cfg.SignatureVerifierMode)
	}
}

func buildExecutor(cfg *config.Config) executor.Executor {
	switch cfg.DisputeExecutorMode {
	case "noop":
		return executor.Noop{}
	case "mock":
		return &executor.Mock{}
	case "auto":
		return executor.NewAuto(func(ctx context.Context, sub executor.Submission) (string, error) {
			return "", errors.New("on-chain dispute broadcast is not wired to a Stacks transaction signer")
		}, 0)
	default:
		return executor.Noop{}
	}
}

func buildSigner(cfg *config.Config) (signerbackend.Backend, error) {
	switch cfg.ProducerSignerMode {
	case "local-key":
		if cfg.SignerKeyHex == "" {
			return nil, fmt.Errorf("WT_SIGNER_KEY is required when producer-signer-mode=local-key")
		}
		keyBytes, err := hex.DecodeString(cfg.SignerKeyHex)
		if err != nil {
			return nil, fmt.Errorf("WT_SIGNER_KEY must be hex-encoded: %w", err)
		}
		return signerbackend.NewLocalKey(keyBytes)
	case "kms":
		return signerbackend.NewKMS(cfg.SignerKeyHex, func(keyID string, hash [32]byte) ([65]byte, error) {
			var out [65]byte
			return out, fmt.Errorf("no KMS client is wired for key id %q", keyID)
		}), nil
	default:
		return nil, fmt.Errorf("unrecognized producer signer mode %q", cfg.ProducerSignerMode)
	}
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := watchtowerMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

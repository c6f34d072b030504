package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pilacorp/go-lds-secp256k1/config"
	"github.com/pilacorp/go-lds-secp256k1/logger"
	"github.com/pilacorp/go-lds-secp256k1/session"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type output struct {
	Run      *session.Report       `json:"run,omitempty"`
	Tampered []session.SuiteReport `json:"tampered,omitempty"`
	State    *keyState             `json:"state,omitempty"`
}

// keyState is the non-secret part of the session state.
type keyState struct {
	Path     string `json:"path"`
	KeyError string `json:"keyError,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the demo and returns the exit status. Only setup failures
// (flags, configuration, document, metrics) yield 1; key errors are reported
// in the output.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lds-demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "Path to config.yaml (optional)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (a random one is generated when empty)")
	hdPath := fs.String("path", "", "HD derivation path override")
	privateKey := fs.String("private-key", "", "Hex private key used instead of the mnemonic")
	documentPath := fs.String("document", "", "Path to the JSON document to sign (optional)")
	tamper := fs.Bool("tamper", false, "Modify the signed documents and verify them again")
	lenient := fs.Bool("lenient", false, "Accept mnemonics that fail the BIP-39 checksum")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address and wait for a signal")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *showVersion {
		fmt.Fprintf(stdout, "lds-demo version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return 0
	}

	fail := func(format string, a ...interface{}) int {
		fmt.Fprintf(stderr, "lds-demo: "+format+"\n", a...)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail("invalid configuration: %v", err)
	}
	if *lenient {
		cfg.StrictMnemonic = false
	}

	log := logger.NewWithOutput(logger.ParseLevel(cfg.LogLevel), stderr)

	opts := []session.Option{session.WithLogger(log)}
	var reg *prometheus.Registry
	if *metricsAddr != "" {
		reg = prometheus.NewRegistry()
		metrics, err := session.NewMetrics(reg)
		if err != nil {
			return fail("failed to register metrics: %v", err)
		}
		opts = append(opts, session.WithMetrics(metrics))
	}

	s, err := session.New(cfg, opts...)
	if err != nil {
		return fail("failed to create session: %v", err)
	}

	// Key errors are not fatal: the session keeps them and the output shows
	// the empty key state.
	if *hdPath != "" {
		if err := s.SetPath(*hdPath); err != nil {
			log.Warnf("invalid path: %v", err)
		}
	}
	switch {
	case *privateKey != "":
		if err := s.SetPrivateKeyHex(*privateKey); err != nil {
			log.Warnf("invalid private key: %v", err)
		}
	case *mnemonic != "":
		if err := s.SetMnemonic(*mnemonic); err != nil {
			log.Warnf("invalid mnemonic: %v", err)
		}
	}
	if *documentPath != "" {
		raw, err := os.ReadFile(*documentPath)
		if err != nil {
			return fail("failed to read document: %v", err)
		}
		if err := s.SetDocumentJSON(raw); err != nil {
			return fail("invalid document: %v", err)
		}
	}

	out := output{}
	out.Run, err = s.Run(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoKey) {
			return fail("run failed: %v", err)
		}
		st := s.State()
		out.State = &keyState{Path: st.Path, KeyError: st.KeyError}
		log.Warnf("nothing signed: %v", err)
	}

	if *tamper && out.Run != nil {
		signed := out.Run.Signed()
		for _, doc := range signed {
			doc["tampered"] = true
		}
		out.Tampered, err = s.Verify(ctx, signed)
		if err != nil {
			return fail("verify failed: %v", err)
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fail("failed to write report: %v", err)
	}

	if reg != nil {
		if err := serveMetrics(ctx, *metricsAddr, reg, log); err != nil {
			return fail("metrics server failed: %v", err)
		}
	}
	return 0
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

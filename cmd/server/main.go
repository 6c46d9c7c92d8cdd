package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nexpay/bchfacilitator/internal/api"
	"github.com/nexpay/bchfacilitator/internal/chain"
	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/ledger"
	"github.com/nexpay/bchfacilitator/internal/ledgerengine"
	"github.com/nexpay/bchfacilitator/internal/logging"
	"github.com/nexpay/bchfacilitator/internal/settle"
	"github.com/nexpay/bchfacilitator/internal/signer"
	"github.com/nexpay/bchfacilitator/internal/verify"
	"github.com/nexpay/bchfacilitator/internal/wallet"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "rebuild-index":
		if err := runRebuildIndex(); err != nil {
			slog.Error("rebuild-index error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("bchfacilitator %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: bchfacilitator <command>

Commands:
  serve           Start the HTTP facilitator server
  rebuild-index   Rebuild the address secondary index from the UTXO ledger
  version         Print version information
`)
}

// chainAPIURLs splits the comma-separated FACILITATOR_CHAIN_API_URLS value.
func chainAPIURLs(cfg *config.Config) []string {
	var urls []string
	for _, u := range strings.Split(cfg.ChainAPIURLs, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting bchfacilitator",
		"version", version,
		"network", cfg.Network,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"logLevel", cfg.LogLevel,
	)

	store, err := ledger.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger store: %w", err)
	}
	defer store.Close()

	slog.Info("ledger store opened", "path", cfg.DBPath)

	rebuildCtx, rebuildCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	rebuildStart := time.Now()
	if err := store.RebuildAddressIndex(rebuildCtx); err != nil {
		rebuildCancel()
		return fmt.Errorf("rebuild address index at startup: %w", err)
	}
	rebuildCancel()
	slog.Info("address index rebuilt at startup", "duration", time.Since(rebuildStart).Round(time.Millisecond))

	providerURLs := chainAPIURLs(cfg)
	chainClient := chain.NewClient(
		&http.Client{Timeout: config.DefaultChainRequestTimeout},
		providerURLs,
		cfg.ServerBCHAddress,
	)

	engine := ledgerengine.NewEngine(store, chainClient)

	keyService := wallet.NewKeyService(cfg.MnemonicFile, cfg.Network)
	facilitatorWallet := wallet.NewFacilitator(keyService, chainClient, cfg.Network)

	verifier := signer.NewSecp256k1Verifier(wallet.NetworkParams(cfg.Network))

	verifyPipeline := verify.New(store, engine, verifier)
	settlePipeline := settle.New(verifyPipeline, facilitatorWallet)

	router := api.NewRouter(cfg, verifyPipeline, settlePipeline)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	slog.Info("server configured",
		"readTimeout", config.ServerReadTimeout,
		"writeTimeout", config.ServerWriteTimeout,
		"idleTimeout", config.ServerIdleTimeout,
	)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownGracePeriod)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func runRebuildIndex() error {
	fs := flag.NewFlagSet("rebuild-index", flag.ExitOnError)
	dbPath := fs.String("db", "", "Ledger store path (default: from FACILITATOR_DB_PATH or ./data/bchfacilitator.sqlite)")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	store, err := ledger.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer store.Close()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := store.RebuildAddressIndex(ctx); err != nil {
		return fmt.Errorf("rebuild address index: %w", err)
	}

	slog.Info("address index rebuilt", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

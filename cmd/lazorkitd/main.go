// Command lazorkitd is the harness process that serves the authorization
// engine over HTTP: it loads config, opens the durable trie-backed store,
// seeds the on-chain Config/Registry singletons on first run, and listens
// with httpapi.NewRouter, grounded on cmd/nhb's config-load-then-serve shape.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lazorkit/config"
	"lazorkit/core/state"
	"lazorkit/crypto"
	"lazorkit/engine"
	"lazorkit/httpapi"
	"lazorkit/observability/logging"
	"lazorkit/policy/defaultpolicy"
	"lazorkit/runtime"
	"lazorkit/storage"
	"lazorkit/storage/trie"
)

func main() {
	configFile := flag.String("config", "./lazorkit.toml", "Path to the configuration file")
	flag.Parse()

	logger := logging.Setup("lazorkitd", os.Getenv("LAZORKIT_ENV"), logging.FileConfig{})

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		logger.Error("failed to open state trie", "error", err)
		os.Exit(1)
	}
	store := state.NewManager(tr)

	authorityKey, err := cfg.AuthorityPrivateKey()
	if err != nil {
		logger.Error("failed to load authority key", "error", err)
		os.Exit(1)
	}
	authority := authorityKey.PubKey().Address().Array()

	defaultPolicyAddr, err := crypto.DecodeAddress(cfg.DefaultPolicyProgram)
	if err != nil {
		logger.Error("failed to decode default policy program address", "error", err)
		os.Exit(1)
	}
	defaultPolicyProgram := defaultPolicyAddr.Array()

	registry := runtime.NewRegistry()
	registry.Register(defaultPolicyProgram, defaultpolicy.New(defaultPolicyProgram))

	eng := engine.New(store, registry, nil, authority, func() int64 { return time.Now().Unix() })

	if existing, err := store.GetConfig(); err != nil {
		logger.Error("failed to read config singleton", "error", err)
		os.Exit(1)
	} else if existing.Authority == ([32]byte{}) {
		if err := eng.Initialize(authority, defaultPolicyProgram, cfg.CreateWalletFee, cfg.ExecuteFee); err != nil {
			logger.Error("failed to initialize engine config", "error", err)
			os.Exit(1)
		}
		logger.Info("seeded genesis config", "authority", authorityKey.PubKey().Address().String())
	}

	var authenticator *httpapi.Authenticator
	if cfg.AdminAuthEnabled {
		authenticator = httpapi.NewAuthenticator(httpapi.AuthConfig{
			Enabled:    true,
			HMACSecret: cfg.AdminHMACSecret,
			Issuer:     cfg.AdminAuthIssuer,
		}, logger)
	}

	router := httpapi.NewRouter(httpapi.Config{Engine: eng, Authenticator: authenticator, Logger: logger})
	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.ListenAddress, Handler: mux}

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

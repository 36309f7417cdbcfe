// Command auctiond runs the sealed-bid auction house as an HTTP service.
package main

import (
	"crypto/ed25519"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeebo/blake3"

	"SealBid/internal/api"
	"SealBid/internal/auction"
	"SealBid/internal/custody"
	"SealBid/internal/funds"
	"SealBid/internal/logger"
	"SealBid/internal/snapshot"
	"SealBid/internal/storage"
)

func main() {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if err := run(cfg); err != nil {
		logger.Error("auctiond failed", "error", err)
		os.Exit(1)
	}
}

// run wires storage, collaborators, the house and the API, then blocks
// until an interrupt arrives.
func run(cfg *Config) error {
	key, err := loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return err
	}
	cfg.PrivateKey = key

	account := escrowAccount(key)

	db, err := storage.New(cfg.DataPath)
	if err != nil {
		return err
	}
	defer db.Close()

	bank := funds.NewBank(db)
	assets := custody.NewRegistry(db)

	house := auction.New(db, auction.Config{
		Custody:   assets,
		Payment:   funds.NewEscrow(bank, account),
		Account:   account,
		MinPeriod: cfg.MinPeriod,
	})

	var faucet api.Faucet
	if cfg.Faucet {
		faucet = bank
	}

	server := api.New(cfg.HTTPAddress, house, faucet, snapshot.NewManager(db))
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("auction house up",
		"data", cfg.DataPath,
		"http", cfg.HTTPAddress,
		"escrow", account[:4],
		"faucet", cfg.Faucet,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	return nil
}

// escrowAccount derives the house escrow identity from the node's pubkey.
func escrowAccount(key ed25519.PrivateKey) auction.Hash {
	pub := key.Public().(ed25519.PublicKey)
	return blake3.Sum256(pub)
}

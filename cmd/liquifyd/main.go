// Command liquifyd is the daemon: it wires an internal/engine.Engine to a
// simulated validator set and serves it over internal/netsrv, grounded on
// the teacher's cmd/main.go wiring (engine + server construction, signal-
// driven shutdown) generalised to this domain's config and validator
// registry.
package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/liquify/liquify-engine/internal/engine"
	"github.com/liquify/liquify-engine/internal/netsrv"
	"github.com/liquify/liquify-engine/internal/validator"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var epoch atomic.Uint32
	epoch.Store(1)
	currentEpoch := func() uint32 { return epoch.Load() }

	sim := validator.NewSimValidator(
		cfg.ValidatorAddress,
		cfg.ValidatorPoolUnit,
		cfg.ValidatorReceipt,
		mustDecimal(cfg.ValidatorRate),
		cfg.ValidatorUnbondingEpochs,
		currentEpoch,
	)
	registry := validator.NewRegistry(sim)
	registry.RegisterReceiptResource(cfg.ValidatorReceipt, sim)

	params := engine.Params{
		PlatformFee:         mustDecimal(cfg.PlatformFee),
		CycleFee:            mustDecimal(cfg.CycleFee),
		MinLiquidity:        mustDecimal(cfg.MinLiquidity),
		MinRefillThreshold:  mustDecimal(cfg.MinRefillThreshold),
		SmallOrderThreshold: mustDecimal(cfg.SmallOrderThreshold),
		ComponentStatus:     true,
		ReceiptImageURL:     cfg.ReceiptImageURL,
	}

	eng := engine.New(cfg.BaseResource, registry, currentEpoch, params)

	go runEpochClock(ctx, &epoch, time.Duration(cfg.EpochSeconds)*time.Second)

	srv := netsrv.New(cfg.ListenAddress, cfg.ListenPort, eng, cfg.AdminToken)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server exited")
		}
	}
}

// runEpochClock advances the simulated ledger epoch on a fixed cadence
// until ctx is cancelled (spec.md leaves epoch progression to the host
// ledger; a standalone daemon needs its own substitute clock).
func runEpochClock(ctx context.Context, epoch *atomic.Uint32, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := epoch.Add(1)
			log.Debug().Uint32("epoch", next).Msg("epoch advanced")
		}
	}
}

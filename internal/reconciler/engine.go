package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"usdt-settlement-go/internal/deposit"
	"usdt-settlement-go/internal/models"
	"usdt-settlement-go/internal/networks"
	"usdt-settlement-go/internal/oracle"
	"usdt-settlement-go/internal/store"
)

// maxConcurrentChecks bounds the number of in-flight oracle queries per
// tick so a large pending set cannot stampede the chain gateway.
const maxConcurrentChecks = 8

// Engine drives the polling reconciliation loop: each tick it sweeps
// expired addresses, then checks the chain balance of every pending
// address and settles the ones that have been funded.
type Engine struct {
	store    store.LedgerStore
	oracle   oracle.Oracle
	deposits *deposit.Service

	pollInterval  time.Duration
	errorBackoff  time.Duration
	oracleTimeout time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewEngine(ledger store.LedgerStore, chainOracle oracle.Oracle, deposits *deposit.Service, cfg models.ReconcilerConfig) *Engine {
	return &Engine{
		store:         ledger,
		oracle:        chainOracle,
		deposits:      deposits,
		pollInterval:  cfg.PollInterval,
		errorBackoff:  cfg.ErrorBackoff,
		oracleTimeout: cfg.OracleTimeout,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the reconciliation loop in the background.
func (e *Engine) Start(ctx context.Context) error {
	if e.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", e.pollInterval)
	}

	go e.pollLoop(ctx)

	zap.L().Info("Reconciliation engine started",
		zap.Duration("poll_interval", e.pollInterval),
		zap.Duration("error_backoff", e.errorBackoff))
	return nil
}

// Stop gracefully stops the engine, letting an in-flight tick finish.
func (e *Engine) Stop() {
	zap.L().Info("Stopping reconciliation engine")
	close(e.stopChan)
	<-e.doneChan
	zap.L().Info("Reconciliation engine stopped")
}

// pollLoop runs ticks at the steady interval, backing off after a tick
// that failed entirely. The backoff doubles up to the steady interval,
// then resets on the first healthy tick.
func (e *Engine) pollLoop(ctx context.Context) {
	defer close(e.doneChan)

	backoff := e.errorBackoff
	timer := time.NewTimer(e.tick(ctx, &backoff))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			timer.Reset(e.tick(ctx, &backoff))
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one reconciliation pass and returns the delay until the
// next one, advancing backoff on failure and resetting it on success.
func (e *Engine) tick(ctx context.Context, backoff *time.Duration) time.Duration {
	if err := e.RunOnce(ctx); err != nil {
		delay := *backoff
		zap.L().Error("Reconciliation tick failed", zap.Error(err), zap.Duration("retry_in", delay))
		*backoff *= 2
		if *backoff > e.pollInterval {
			*backoff = e.pollInterval
		}
		return delay
	}
	*backoff = e.errorBackoff
	return e.pollInterval
}

// RunOnce performs a single reconciliation tick. Per-address failures
// are logged and skipped; the tick as a whole fails only when the
// pending set cannot be read.
func (e *Engine) RunOnce(ctx context.Context) error {
	if _, err := e.deposits.SweepExpired(ctx); err != nil {
		return fmt.Errorf("failed to sweep expired addresses: %w", err)
	}

	pending, err := e.store.GetPendingAddresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending addresses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	zap.L().Debug("Checking pending deposit addresses", zap.Int("count", len(pending)))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentChecks)
	for _, addr := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(addr models.DepositAddress) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := e.checkAddress(ctx, addr); err != nil {
				zap.L().Error("Failed to check deposit address",
					zap.String("address_id", addr.Id),
					zap.String("network", addr.Network),
					zap.Error(err))
			}
		}(addr)
	}
	wg.Wait()

	return nil
}

// checkAddress polls the chain balance of one pending address and
// settles it when the expected amount has arrived.
func (e *Engine) checkAddress(ctx context.Context, addr models.DepositAddress) error {
	network, err := networks.Parse(addr.Network)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	observed, err := e.oracle.GetBalance(callCtx, addr.Address, network)
	if err != nil {
		return fmt.Errorf("failed to fetch chain balance: %w", err)
	}

	if observed.LessThan(addr.Amount) {
		if observed.IsPositive() {
			zap.L().Debug("Partial deposit observed, waiting",
				zap.String("address_id", addr.Id),
				zap.String("observed", observed.String()),
				zap.String("expected", addr.Amount.String()))
		}
		return nil
	}

	result, err := e.store.SettleDeposit(ctx, store.SettleDepositParams{
		AddressId:       addr.Id,
		ObservedBalance: observed,
	})
	if err != nil {
		// Another tick or a manual verification got there first.
		if errors.Is(err, store.ErrAlreadySettled) || errors.Is(err, store.ErrAddressNotPending) {
			zap.L().Debug("Address settled elsewhere", zap.String("address_id", addr.Id))
			return nil
		}
		return fmt.Errorf("failed to settle deposit: %w", err)
	}

	zap.L().Info("Deposit reconciled",
		zap.String("address_id", addr.Id),
		zap.String("user_id", result.UserId),
		zap.String("network", addr.Network),
		zap.String("amount", result.Amount.String()),
		zap.String("new_balance", result.NewBalance.String()))
	return nil
}

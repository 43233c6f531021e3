package main

import (
	"context"
	"flag"
	"fmt"

	"usdt-settlement-go/internal/common"
	"usdt-settlement-go/internal/config"
	"usdt-settlement-go/internal/database"
	"usdt-settlement-go/internal/models"

	"go.uber.org/zap"
)

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func printUser(user models.User, balance *models.Balance, history []models.Transaction) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Balance: %s USD (v%d, last_tx: %s)\n",
		balance.Balance.String(), balance.Version, formatTransactionId(balance.LastTransactionId))

	for i, tx := range history {
		isLast := i == len(history)-1
		fmt.Printf("%s %-10s %-9s %12s | %s\n",
			common.BoxPrefix(isLast), tx.Kind, tx.Status, tx.Amount.String(),
			tx.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func processUser(ctx context.Context, dbService *database.Service, user models.User, showHistory bool, historyLimit int) error {
	balance, err := dbService.GetUserBalance(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	var history []models.Transaction
	if showHistory {
		history, err = dbService.GetTransactionHistory(ctx, user.Id, historyLimit, 0)
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}
	}

	printUser(user, balance, history)
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	showHistory := flag.Bool("history", false, "Show recent transactions per user")
	historyLimit := flag.Int("limit", 10, "Number of transactions to show with --history")
	reconcile := flag.Bool("reconcile", false, "Recompute each balance from the ledger and fix drift")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := dbService.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to get users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCES", common.DefaultWidth)

	if len(users) == 0 {
		fmt.Println("No users found. Create one with: go run cmd/adduser/main.go --name ... --email ...")
		return
	}

	var failures int
	for _, user := range users {
		if *reconcile {
			if err := dbService.ReconcileUserBalance(ctx, user.Id); err != nil {
				zap.L().Error("Failed to reconcile balance",
					zap.String("user_id", user.Id),
					zap.Error(err))
				failures++
				continue
			}
		}
		if err := processUser(ctx, dbService, user, *showHistory, *historyLimit); err != nil {
			zap.L().Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.Error(err))
			failures++
		}
	}

	common.PrintFooter(fmt.Sprintf("Users: %d, Failures: %d", len(users), failures), common.DefaultWidth)
}

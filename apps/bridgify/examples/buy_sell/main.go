// Command buy_sell drives a client session against a running bridgify server: it
// buys ETH, sells part of it back and prints the reconciled balance.
package main

import (
	"context"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/config"
	"bridgify/apps/bridgify/internal/dashboard"
	"bridgify/apps/bridgify/internal/localstate"
	"bridgify/apps/bridgify/internal/ordersync"
	"bridgify/apps/bridgify/internal/rates"
)

const defaultWallet = "0x0B8fA6F76eB75ae3a4ca28eb3020DFC4503F2136"

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := config.NewConfig()
	wallet := os.Getenv("WALLET_ADDRESS")
	if wallet == "" {
		wallet = defaultWallet
	}

	state, err := localstate.Open(cfg.StateDBPath)
	if err != nil {
		logger.Fatal("Failed to open local state", zap.Error(err))
	}
	defer state.Close()

	client := ordersync.NewClient(cfg.ServerURL, logger)
	oracle := rates.NewOracle(assets.GlobalRegistry, rates.NewSimulatedSource(cfg.RatesRefreshDelay), logger)

	session := dashboard.NewSession(oracle, client, state, dashboard.Options{
		PollInterval: cfg.OrderPollInterval,
		ServerURL:    cfg.ServerURL,
		Watch:        true,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := session.Connect(ctx, wallet); err != nil {
		logger.Fatal("Failed to connect wallet", zap.Error(err))
	}
	defer session.Disconnect()

	if _, err := session.RefreshRates(ctx); err != nil {
		logger.Warn("Continuing with fallback rates", zap.Error(err))
	}

	buy := session.NewBuyForm()
	buy.SetFiatAmount("1000")
	buy.SetPaymentMethod("card")
	order, err := buy.Submit(ctx)
	if err != nil {
		logger.Fatal("Buy failed", zap.Error(err))
	}
	logger.Info("Bought", zap.Int64("order_id", order.ID), zap.String("crypto_amount", order.CryptoAmount.String()))

	sell := session.NewSellForm()
	sell.SetWithdrawalMethod("bank")
	sell.SetCryptoAmount(order.CryptoAmount.Div(decimal.NewFromInt(2)).StringFixed(6))
	logger.Info("Selling", zap.String("crypto_amount", sell.CryptoAmount()), zap.String("net_proceeds", sell.NetProceeds().StringFixed(2)))
	if _, err := sell.Submit(ctx); err != nil {
		logger.Fatal("Sell failed", zap.Error(err))
	}

	current := session.Balance()
	for symbol, amount := range current.Amounts {
		if amount.IsPositive() {
			logger.Info("Balance", zap.String("asset", symbol.Code()), zap.String("amount", amount.String()))
		}
	}
	logger.Info("Portfolio value",
		zap.String("total_usd", current.TotalUSD.StringFixed(2)),
		zap.Int("orders", current.OrderCount),
		zap.String("rates_status", string(session.RatesStatus().Status)))
}

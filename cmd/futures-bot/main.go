package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ducminhle1904/futures-threshold-bot/internal/config"
	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
	"github.com/ducminhle1904/futures-threshold-bot/internal/logger"
)

func main() {
	var (
		configFile = flag.String("config", "", "YAML configuration file (optional)")
		envFile    = flag.String("env", ".env", "Environment file path (default: .env)")
		mode       = flag.String("mode", "loop", "Run mode: loop, status, order-check, limit")
		_          = flag.String("symbol", "", "Trading symbol - overrides config")
		_          = flag.String("threshold", "", "Buy price threshold - overrides config")
		_          = flag.String("qty", "", "Order quantity - overrides config")
		side       = flag.String("side", "BUY", "Order side for order-check and limit modes")
		price      = flag.String("price", "", "Limit price for limit mode")
		_          = flag.Bool("testnet", true, "Use the futures testnet - overrides config")
		_          = flag.String("report", "", "Report directory - overrides config")
	)
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := applyOverrides(cfg, explicitFlags()); err != nil {
		log.Fatalf("Invalid flag: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	zlog, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		log.Fatalf("Invalid exchange configuration: %v", err)
	}
	client, err := binance.NewClient(clientCfg, binance.WithLogger(zlog))
	if err != nil {
		log.Fatalf("Failed to create exchange client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	fmt.Printf("🚀 Futures bot starting (%s, %s)\n", *mode, client.GetEnvironment())

	var runErr error
	switch *mode {
	case "loop":
		runErr = runLoop(ctx, cfg, client, zlog)
	case "status":
		runErr = runStatus(ctx, client, cfg.Trading.Symbol)
	case "order-check":
		runErr = runOrderCheck(ctx, client, orderArgs{symbol: cfg.Trading.Symbol, side: *side, qty: cfg.Trading.BuyQuantity})
	case "limit":
		runErr = runLimit(ctx, client, orderArgs{symbol: cfg.Trading.Symbol, side: *side, qty: cfg.Trading.BuyQuantity, price: *price})
	default:
		runErr = fmt.Errorf("unknown mode %q", *mode)
	}

	stop()
	_ = zlog.Sync()

	if runErr != nil {
		zlog.Error("run failed", zap.Error(runErr))
		fmt.Printf("❌ %v\n", runErr)
		os.Exit(1)
	}
	fmt.Println("✅ Finished")
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}

// explicitFlags returns the flags the user actually set
func explicitFlags() map[string]string {
	set := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	return set
}

// applyOverrides copies explicitly set flags over the loaded configuration
func applyOverrides(cfg *config.Config, set map[string]string) error {
	if v, ok := set["symbol"]; ok {
		cfg.Trading.Symbol = v
	}
	if v, ok := set["threshold"]; ok {
		cfg.Trading.BuyPriceThreshold = v
	}
	if v, ok := set["qty"]; ok {
		cfg.Trading.BuyQuantity = v
	}
	if v, ok := set["report"]; ok {
		cfg.Report.Dir = v
	}
	if v, ok := set["testnet"]; ok {
		testnet, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("testnet: %w", err)
		}
		cfg.Exchange.Testnet = testnet
		if testnet {
			cfg.Exchange.BaseURL = ""
		}
	}
	return nil
}

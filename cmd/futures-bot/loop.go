package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"github.com/ducminhle1904/futures-threshold-bot/internal/bot"
	"github.com/ducminhle1904/futures-threshold-bot/internal/config"
	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
	"github.com/ducminhle1904/futures-threshold-bot/internal/monitoring"
	"github.com/ducminhle1904/futures-threshold-bot/pkg/reporting"
)

// runLoop runs one threshold loop and writes its report
func runLoop(ctx context.Context, cfg *config.Config, client *binance.Client, zlog *zap.Logger) error {
	loopCfg, err := cfg.LoopConfig()
	if err != nil {
		return err
	}

	health := monitoring.NewHealthChecker(loopCfg.Symbol)
	var wg sync.WaitGroup
	srvCtx, stopServer := context.WithCancel(ctx)
	defer func() {
		stopServer()
		wg.Wait()
	}()
	if cfg.Monitoring.Addr != "" {
		srv := monitoring.NewServer(cfg.Monitoring.Addr, health,
			monitoring.WithServerLogger(zlog),
			monitoring.WithCORSOrigins(cfg.Monitoring.CORSOrigins...))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(srvCtx); err != nil {
				zlog.Error("monitoring server failed", zap.Error(err))
			}
		}()
		fmt.Printf("📡 Monitoring on %s (/health, /metrics)\n", cfg.Monitoring.Addr)
	}

	loop, err := bot.NewThresholdLoop(client, loopCfg,
		bot.WithLogger(zlog),
		bot.WithObserver(monitoring.NewRecorder(health)))
	if err != nil {
		return err
	}

	printLoopConfig(loopCfg, client.GetEnvironment())

	result, runErr := loop.Run(ctx)
	printResult(result)

	if cfg.Report.Dir != "" {
		report := reporting.NewRunReport(result, loopCfg).
			WithEnvironment(client.GetEnvironment()).
			WithError(runErr)
		written, err := reporting.NewReporter(cfg.Report.Dir, reporting.AllFormats).Write(report)
		if err != nil {
			zlog.Warn("failed to write run report", zap.Error(err))
		}
		for _, path := range written {
			fmt.Printf("📝 Report: %s\n", path)
		}
	}
	return runErr
}

func printLoopConfig(cfg bot.LoopConfig, env string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("THRESHOLD LOOP")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", cfg.Symbol},
		{"🔧 Environment", env},
		{"🎯 Buy At Or Below", cfg.BuyPriceThreshold.String()},
		{"📦 Quantity", cfg.BuyQuantity.String()},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"⏱️ Poll Interval", cfg.PollInterval.String()},
		{"🔄 Max Attempts", cfg.MaxAttempts},
		{"⏳ Settle Delay", cfg.SettleDelay.String()},
		{"🛡️ Reduce-Only Close", cfg.ReduceOnlyClose},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 35, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

func printResult(result *bot.Result) {
	if result == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RUN RESULT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏁 Final State", result.FinalState},
		{"📝 Reason", result.Reason},
		{"🔢 Attempts", result.Attempts},
		{"💲 Last Price", result.LastPrice.String()},
	})
	if result.Triggered() {
		t.AppendRow(table.Row{"🎯 Trigger Tick", result.TriggerTick})
	}
	if result.EntryOrder != nil {
		t.AppendRow(table.Row{"🟢 Entry Order", fmt.Sprintf("#%d %s", result.EntryOrder.OrderID, result.EntryOrder.Status)})
	}
	if result.Position != nil {
		t.AppendRow(table.Row{"📈 Position", result.Position.PositionAmt.String()})
	}
	if result.CloseOrder != nil {
		t.AppendRow(table.Row{"🔴 Close Order", fmt.Sprintf("#%d %s %s %s", result.CloseOrder.OrderID, result.CloseSide, result.CloseQty, result.CloseOrder.Status)})
	}

	t.Render()
	fmt.Println()
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
)

// orderArgs carries the order-check and limit parameters as typed in
type orderArgs struct {
	symbol string
	side   string
	qty    string
	price  string
}

func (a orderArgs) quantity() (decimal.Decimal, error) {
	if a.qty == "" {
		return decimal.Zero, fmt.Errorf("quantity is required (-qty or BUY_QUANTITY)")
	}
	return decimal.NewFromString(a.qty)
}

// runStatus prints server time, balances and open positions
func runStatus(ctx context.Context, client *binance.Client, symbol string) error {
	serverTime, err := client.GetServerTime(ctx)
	if err != nil {
		return fmt.Errorf("server time: %w", err)
	}
	fmt.Printf("🕒 Server time: %s (local skew %s)\n\n", serverTime.UTC().Format(time.RFC3339Nano), time.Since(serverTime).Round(time.Millisecond))

	if ticker, err := client.GetTickerPrice(ctx, symbol); err == nil {
		fmt.Printf("💲 %s last price: %s\n\n", ticker.Symbol, ticker.Price)
	}

	balances, err := client.GetAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("balances: %w", err)
	}
	printBalances(balances)

	positions, err := client.GetPositionRisk(ctx, "")
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}
	printPositions(positions, symbol)
	return nil
}

// runOrderCheck exercises market order placement, status and cancel
func runOrderCheck(ctx context.Context, client *binance.Client, args orderArgs) error {
	qty, err := args.quantity()
	if err != nil {
		return err
	}

	serverTime, err := client.GetServerTime(ctx)
	if err != nil {
		return fmt.Errorf("server time: %w", err)
	}
	fmt.Printf("🕒 Server time: %s\n", serverTime.UTC().Format(time.RFC3339))

	order, err := client.PlaceMarketOrder(ctx, binance.MarketOrderParams{
		Symbol:   args.symbol,
		Side:     binance.OrderSide(args.side),
		Quantity: qty,
	})
	if err != nil {
		return fmt.Errorf("place market order: %w", err)
	}
	printOrder("MARKET ORDER", order)

	return checkAndCancel(ctx, client, order)
}

// runLimit places a LIMIT order and cancels it
func runLimit(ctx context.Context, client *binance.Client, args orderArgs) error {
	qty, err := args.quantity()
	if err != nil {
		return err
	}
	if args.price == "" {
		return fmt.Errorf("price is required (-price)")
	}
	price, err := decimal.NewFromString(args.price)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}

	order, err := client.PlaceLimitOrder(ctx, binance.LimitOrderParams{
		Symbol:   args.symbol,
		Side:     binance.OrderSide(args.side),
		Quantity: qty,
		Price:    price,
	})
	if err != nil {
		return fmt.Errorf("place limit order: %w", err)
	}
	printOrder("LIMIT ORDER", order)

	return checkAndCancel(ctx, client, order)
}

func checkAndCancel(ctx context.Context, client *binance.Client, order *binance.Order) error {
	status, err := client.GetOrderStatus(ctx, order.Symbol, order.OrderID)
	if err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	printOrder("ORDER STATUS", status)

	if status.Status.IsFinal() {
		fmt.Printf("ℹ️ Order #%d is %s, nothing to cancel\n", status.OrderID, status.Status)
		return nil
	}

	canceled, err := client.CancelOrder(ctx, order.Symbol, order.OrderID)
	if err != nil {
		if binance.IsOrderNotFoundError(err) {
			fmt.Printf("ℹ️ Order #%d no longer open\n", order.OrderID)
			return nil
		}
		return fmt.Errorf("cancel order: %w", err)
	}
	printOrder("CANCELED", canceled)
	return nil
}

func printBalances(balances []binance.Balance) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BALANCES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Asset", "Balance", "Available", "Unrealized PnL"})

	for _, b := range balances {
		if b.Balance.IsZero() && b.AvailableBalance.IsZero() {
			continue
		}
		t.AppendRow(table.Row{b.Asset, b.Balance.String(), b.AvailableBalance.String(), b.CrossUnPnl.String()})
	}

	t.Render()
	fmt.Println()
}

func printPositions(positions []binance.PositionRisk, symbol string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("POSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Amount", "Entry", "Mark", "Unrealized PnL", "Leverage"})

	for _, p := range positions {
		if p.IsFlat() && p.Symbol != symbol {
			continue
		}
		t.AppendRow(table.Row{p.Symbol, p.PositionAmt.String(), p.EntryPrice.String(), p.MarkPrice.String(), p.UnRealizedProfit.String(), p.Leverage})
	}

	t.Render()
	fmt.Println()
}

func printOrder(title string, o *binance.Order) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Order ID", o.OrderID},
		{"Symbol", o.Symbol},
		{"Side", o.Side},
		{"Type", o.Type},
		{"Status", o.Status},
		{"Quantity", o.OrigQty.String()},
		{"Executed", o.ExecutedQty.String()},
	})
	if o.Type == binance.OrderTypeLimit {
		t.AppendRow(table.Row{"Price", o.Price.String()})
		t.AppendRow(table.Row{"Time In Force", o.TimeInForce})
	}

	t.Render()
	fmt.Println()
}

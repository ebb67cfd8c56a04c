package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"polymarket-weather-bot-go/internal/config"
	"polymarket-weather-bot-go/internal/database"
	"polymarket-weather-bot-go/internal/store"
	"polymarket-weather-bot-go/internal/trader"

	"github.com/olekukonko/tablewriter"
)

func main() {
	days := flag.Int("days", 30, "rolling report window in days")
	flag.Parse()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	st := store.New(db)
	now := time.Now()

	daily, err := trader.DailySummary(st, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build daily summary: %v\n", err)
		os.Exit(1)
	}
	rolling, err := trader.Rolling(st, *days, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build rolling report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Daily summary %s: %d trades, pnl $%.2f\n", daily.Date, daily.Trades, daily.PnL)
	printBuckets("City", daily.ByCity)

	fmt.Printf("\nRolling %dd since %s: %d trades, %d wins / %d losses (winrate %.1f%%), pnl $%.2f on $%.2f staked\n",
		rolling.WindowDays, rolling.Since, rolling.Trades,
		rolling.Wins, rolling.Losses, rolling.Winrate*100, rolling.PnL, rolling.Stake)
	printBuckets("City", rolling.ByCity)
	printBuckets("Edge", rolling.ByEdge)
}

func printBuckets(label string, buckets map[string]*trader.BucketStats) {
	if len(buckets) == 0 {
		return
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header(label, "Trades", "W", "L", "PnL", "Stake", "ROI")
	for _, k := range keys {
		b := buckets[k]
		roi := "-"
		if b.HasROI {
			roi = fmt.Sprintf("%.1f%%", b.ROI*100)
		}
		table.Append(
			k,
			fmt.Sprintf("%d", b.Trades),
			fmt.Sprintf("%d", b.Wins),
			fmt.Sprintf("%d", b.Losses),
			fmt.Sprintf("$%.2f", b.PnL),
			fmt.Sprintf("$%.2f", b.Stake),
			roi,
		)
	}
	table.Render()
}

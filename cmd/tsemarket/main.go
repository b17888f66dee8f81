// tsemarket — incremental local cache of exchange instrument and daily
// price data, with adjusted and resampled history queries.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamedsh/tsemarket/internal/clients/tse"
	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/interfaces"
	"github.com/hamedsh/tsemarket/internal/models"
	"github.com/hamedsh/tsemarket/internal/services/marketdata"
	"github.com/hamedsh/tsemarket/internal/storage/historyfs"
)

var (
	cfg    *common.Config
	logger *common.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tsemarket",
	Short: "tsemarket — local cache of exchange instruments and daily price history",
	Long: `tsemarket keeps an incrementally refreshed local view of the
exchange instrument catalog and per-symbol daily price series, and
serves adjusted and weekly/monthly resampled OHLCV bars from it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = common.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger = common.NewLogger(cfg.Logging.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (TOML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indicesCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
}

// newService wires a session from config.
func newService() *marketdata.Service {
	client := tse.NewClient(
		tse.WithBaseURL(cfg.Clients.TSE.BaseURL),
		tse.WithListingURL(cfg.Clients.TSE.ListingURL),
		tse.WithLogger(logger),
		tse.WithRateLimit(cfg.Clients.TSE.RateLimit),
		tse.WithTimeout(cfg.Clients.TSE.GetTimeout()),
		tse.WithRetry(cfg.Clients.TSE.RetryCount, cfg.Clients.TSE.GetPause(), cfg.Clients.TSE.PauseMultiplier),
	)
	return marketdata.NewService(client, logger,
		marketdata.WithChunkSize(cfg.History.ChunkSize),
		marketdata.WithConcurrency(cfg.History.Concurrency),
	)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		common.LoadVersionFromFile()
		fmt.Printf("tsemarket %s\n", common.GetFullVersion())
	},
}

// --- Search Command ---

var searchCmd = &cobra.Command{
	Use:   "search [pattern]",
	Short: "Search the instrument catalog by symbol pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		market, _ := cmd.Flags().GetString("market")

		svc := newService()
		records, err := svc.SearchInstruments(cmd.Context(), args[0], interfaces.MarketFilter(market))
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("market", "", "restrict to one market: index or normal")
}

// --- Indices Command ---

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "List the exchange's indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		records, err := svc.ListIndices(cmd.Context())
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

// --- Groups Command ---

var groupsCmd = &cobra.Command{
	Use:   "groups [name]",
	Short: "List sector groups, or the instruments of one group",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()

		if len(args) == 0 {
			groups, err := svc.GroupNames(cmd.Context())
			if err != nil {
				return err
			}
			for code, name := range groups {
				fmt.Printf("%s\t%s\n", code, name)
			}
			return nil
		}

		records, err := svc.FilterByGroup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

// --- History Command ---

var historyCmd = &cobra.Command{
	Use:   "history [symbol]...",
	Short: "Fetch daily, weekly or monthly OHLCV history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := historyRequest(cmd, args)
		if err != nil {
			return err
		}

		svc := newService()
		series, err := svc.GetHistory(cmd.Context(), req)
		if err != nil {
			return err
		}

		for _, symbol := range args {
			pts, ok := series[models.NormalizeSymbolText(symbol)]
			if !ok {
				logger.Warn().Str("symbol", symbol).Msg("Unknown symbol, skipped")
				continue
			}
			fmt.Printf("# %s\n", symbol)
			printSeries(pts)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("start", "", "start date (YYYY-MM-DD, YYYYMMDD, year, or Jalali forms; default 5 years back)")
	historyCmd.Flags().String("end", "", "end date (default today)")
	historyCmd.Flags().String("interval", "d", "bar interval: d, w or m")
	historyCmd.Flags().Bool("adjust", false, "adjust prices across corporate actions")
}

func historyRequest(cmd *cobra.Command, symbols []string) (interfaces.HistoryRequest, error) {
	req := interfaces.HistoryRequest{Symbols: symbols}

	if v, _ := cmd.Flags().GetString("start"); v != "" {
		t, err := common.ParseDate(v)
		if err != nil {
			return req, err
		}
		req.Start = t
	}
	if v, _ := cmd.Flags().GetString("end"); v != "" {
		t, err := common.ParseDate(v)
		if err != nil {
			return req, err
		}
		req.End = t
	}
	interval, _ := cmd.Flags().GetString("interval")
	req.Interval = models.Interval(interval)
	req.AdjustPrices, _ = cmd.Flags().GetBool("adjust")
	return req, nil
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export [symbol]...",
	Short: "Fetch history and export one CSV file per symbol",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := historyRequest(cmd, args)
		if err != nil {
			return err
		}

		svc := newService()
		if _, err := svc.GetHistory(cmd.Context(), req); err != nil {
			return err
		}

		store, err := historyfs.NewStore(logger, cfg.Storage.Export.Path)
		if err != nil {
			return err
		}
		if err := svc.ExportHistory(cmd.Context(), store, normalizeAll(args)); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", store.DataPath())
		return nil
	},
}

func init() {
	exportCmd.Flags().String("start", "", "start date (default 5 years back)")
	exportCmd.Flags().String("end", "", "end date (default today)")
	exportCmd.Flags().String("interval", "d", "bar interval: d, w or m")
	exportCmd.Flags().Bool("adjust", false, "adjust prices across corporate actions")
}

// --- output helpers ---

func normalizeAll(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = models.NormalizeSymbolText(s)
	}
	return out
}

func printRecords(records []models.InstrumentRecord) {
	for _, r := range records {
		fmt.Printf("%d\t%s\t%s\t%s\t%s\n", r.ID, r.Symbol, r.Name, r.Market, r.Group)
	}
}

func printSeries(pts []models.PricePoint) {
	fmt.Println("date\topen\thigh\tlow\tclose\tcount\tvolume\tvalue")
	for _, p := range pts {
		fmt.Printf("%s\t%.0f\t%.0f\t%.0f\t%.0f\t%d\t%.0f\t%.0f\n",
			formatDay(p.Date), p.Open, p.High, p.Low, p.Close, p.TradeCount, p.Volume, p.Value)
	}
}

func formatDay(date int) string {
	t := time.Date(date/10000, time.Month(date/100%100), date%100, 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02")
}

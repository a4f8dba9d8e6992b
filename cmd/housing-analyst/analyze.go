package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/housing-analyst/internal/analysis"
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/report"
)

var (
	analyzeFormat string

	filterFlags listing.Filters
	maxResults  int

	criteria analysis.Criteria

	compareIDs     []int64
	compareAspects []string

	marketReq analysis.MarketRequest
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis against the local listing database",
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the listings matching the filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalysis(cmd, func(a *app) (any, error) {
			return a.pipeline.Summarize(cmd.Context(), analysis.SummaryRequest{
				Filters:       filterFlags,
				MaxProperties: maxResults,
			})
		})
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank listings against buyer criteria",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalysis(cmd, func(a *app) (any, error) {
			return a.pipeline.Recommend(cmd.Context(), analysis.RecommendRequest{
				Criteria:           criteria,
				MaxRecommendations: maxResults,
			})
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two to five listings side by side",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalysis(cmd, func(a *app) (any, error) {
			return a.pipeline.Compare(cmd.Context(), analysis.CompareRequest{
				PropertyIDs: compareIDs,
				Aspects:     compareAspects,
			})
		})
	},
}

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Analyze market conditions for a region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalysis(cmd, func(a *app) (any, error) {
			return a.pipeline.AnalyzeMarket(cmd.Context(), marketReq)
		})
	},
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeFormat, "format", "json", "Output format: json or markdown")

	f := summaryCmd.Flags()
	f.Float64Var(&filterFlags.PriceMin, "price-min", 0, "Minimum list price")
	f.Float64Var(&filterFlags.PriceMax, "price-max", 0, "Maximum list price")
	f.IntVar(&filterFlags.BedsMin, "beds", 0, "Minimum bedrooms")
	f.Float64Var(&filterFlags.BathsMin, "baths", 0, "Minimum bathrooms")
	f.StringVar(&filterFlags.CityContains, "city", "", "City name substring")
	f.IntVar(&maxResults, "max", 0, "Maximum listings to analyze (default 20)")

	f = recommendCmd.Flags()
	f.Float64Var(&criteria.BudgetMax, "budget", 0, "Maximum list price")
	f.IntVar(&criteria.BedsMin, "beds", 0, "Minimum bedrooms")
	f.Float64Var(&criteria.BathsMin, "baths", 0, "Minimum bathrooms")
	f.StringVar(&criteria.CityPreference, "city", "", "Preferred city")
	f.StringVar(&criteria.Lifestyle, "lifestyle", "", "Free-text lifestyle notes for the model")
	f.IntVar(&maxResults, "max", 0, "Number of recommendations (default 5)")

	f = compareCmd.Flags()
	f.Int64SliceVar(&compareIDs, "ids", nil, "Listing ids to compare, in order (2 to 5)")
	f.StringSliceVar(&compareAspects, "aspects", nil, "Aspects to emphasize")
	_ = compareCmd.MarkFlagRequired("ids")

	f = marketCmd.Flags()
	f.StringVar(&marketReq.Region, "region", "", "Region name (default Salt Lake Valley)")
	f.StringVar(&marketReq.TimePeriod, "period", "", "Time period: 7d, 30d or 90d (default 30d)")
	f.StringVar(&marketReq.Focus, "focus", "", "Focus area, for example first-time buyers or condos")

	analyzeCmd.AddCommand(summaryCmd, recommendCmd, compareCmd, marketCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalysis(cmd *cobra.Command, run func(*app) (any, error)) error {
	if analyzeFormat != "json" && analyzeFormat != "markdown" {
		return fmt.Errorf("unknown format %q", analyzeFormat)
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := run(a)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), analyzeFormat, res, time.Now())
}

func writeResult(w io.Writer, format string, res any, now time.Time) error {
	if format == "markdown" {
		md, err := report.Markdown(res, now)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

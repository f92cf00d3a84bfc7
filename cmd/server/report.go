package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesdash/internal/dashboard"
	"salesdash/internal/engine"
	"salesdash/internal/metrics"
	"salesdash/internal/models"
)

var (
	reportFilters []string
	reportFrom    string
	reportTo      string
	reportExport  string
	reportTopN    int
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Run the dashboard pipeline once and print KPIs and charts as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringArrayVar(&reportFilters, "filter", nil, "Categorical filter Column=Value (repeat to select several values)")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Date filter start (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Date filter end (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportExport, "export", "", "Also write the filtered rows as CSV to this path")
	reportCmd.Flags().IntVar(&reportTopN, "top-n", engine.DefaultTopN, "Number of products in the top-N charts")
}

type report struct {
	Dataset   models.DatasetInfo    `json:"dataset"`
	Selection models.Selection      `json:"selection"`
	Dashboard *models.DashboardData `json:"dashboard"`
}

func runReport(cmd *cobra.Command, args []string) error {
	defer logger.Sync() //nolint:errcheck

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	svc := dashboard.New(logger, metrics.Nop{}, serviceOptions(cfg))
	entry, err := svc.Upload(filepath.Base(path), content)
	if err != nil {
		return err
	}

	sel, err := reportSelection(entry.Filters, reportFilters, reportFrom, reportTo)
	if err != nil {
		return err
	}
	data, err := svc.Dashboard(entry.ID, sel)
	if err != nil {
		return err
	}

	if reportExport != "" {
		f, err := os.Create(reportExport)
		if err != nil {
			return fmt.Errorf("create %s: %w", reportExport, err)
		}
		if err := svc.Export(f, entry.ID, sel); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("filtered rows exported", zap.String("path", reportExport))
	}

	out, err := json.MarshalIndent(report{
		Dataset:   entry.Info(),
		Selection: dashboard.SelectionToModel(sel),
		Dashboard: data,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// reportSelection turns --filter/--from/--to into a selection. Filters on
// the same column accumulate; a missing date bound keeps the sample bound.
func reportSelection(opts engine.FilterOptions, filters []string, from, to string) (engine.Selection, error) {
	sel := opts.DefaultSelection()
	picked := make(map[string][]string)
	for _, f := range filters {
		col, val, ok := strings.Cut(f, "=")
		if !ok {
			return engine.Selection{}, fmt.Errorf("invalid --filter %q, want Column=Value", f)
		}
		picked[col] = append(picked[col], val)
	}
	for col, vals := range picked {
		sel.Categorical[col] = vals
	}

	if from == "" && to == "" {
		return sel, nil
	}
	if sel.DateRange == nil {
		return engine.Selection{}, fmt.Errorf("dataset has no date column to filter")
	}
	if from != "" {
		t, ok := engine.ParseDate(from)
		if !ok {
			return engine.Selection{}, fmt.Errorf("invalid --from %q", from)
		}
		sel.DateRange.Start = t
	}
	if to != "" {
		t, ok := engine.ParseDate(to)
		if !ok {
			return engine.Selection{}, fmt.Errorf("invalid --to %q", to)
		}
		sel.DateRange.End = t
	}
	return sel, nil
}

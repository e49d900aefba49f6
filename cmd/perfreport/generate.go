package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"perfreport/internal/excel"
	"perfreport/internal/logging"
	"perfreport/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type generateOptions struct {
	crmPath      string
	erpPath      string
	dataCodePath string
	month        string
	year         string
	xlsxPath     string
	logLevel     string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a report from export files without touching the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(opts.logLevel, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runGenerate(opts, logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.crmPath, "crm", "", "CRM project export (required)")
	cmd.Flags().StringVar(&opts.erpPath, "erp", "", "ERP sales export (required)")
	cmd.Flags().StringVar(&opts.dataCodePath, "datacode", "", "DataCode mapping export (required)")
	cmd.Flags().StringVar(&opts.month, "month", "", "Reporting month, e.g. April or 4月 (required)")
	cmd.Flags().StringVar(&opts.year, "year", "", "Reporting year (required)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Write the report to this workbook instead of printing JSON")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level for skipped-record diagnostics")

	for _, name := range []string{"crm", "erp", "datacode", "month", "year"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runGenerate(opts generateOptions, logger *zap.Logger, out io.Writer) error {
	crm, err := parseFile(opts.crmPath, excel.ParseCRM)
	if err != nil {
		return err
	}
	erp, err := parseFile(opts.erpPath, excel.ParseERP)
	if err != nil {
		return err
	}
	mappings, err := parseFile(opts.dataCodePath, excel.ParseMappings)
	if err != nil {
		return err
	}

	rows, stats, err := report.NewEngine(logger).GenerateWithStats(erp, mappings, crm, opts.month, opts.year)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []report.ProjectSummaryRow{}
	}
	snapshot, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if opts.xlsxPath == "" {
		_, err = fmt.Fprintln(out, string(snapshot))
		return err
	}

	f, err := os.Create(opts.xlsxPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.xlsxPath, err)
	}
	if err := excel.WriteReport(f, snapshot); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", opts.xlsxPath, err)
	}
	fmt.Fprintf(out, "wrote %d projects to %s (erp %d/%d, crm %d/%d records used)\n",
		len(rows), opts.xlsxPath,
		stats.ERPIncluded, stats.ERPIncluded+stats.ERPExcluded+stats.ERPFailed,
		stats.CRMIncluded, stats.CRMIncluded+stats.CRMExcluded+stats.CRMFailed,
	)
	return nil
}

func parseFile[T any](path string, parse func(string, io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := parse(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"perfreport/internal/domain"
	"perfreport/internal/repository"
	"perfreport/internal/service"

	"github.com/spf13/cobra"
)

type importOptions struct {
	kind        string
	file        string
	name        string
	month       string
	year        string
	description string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a CRM, ERP or DataCode export as a new upload batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			svc := service.New(repository.New(e.pool), service.Options{Logger: e.log.Named("service")})
			return runImport(cmd.Context(), svc, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "", "Source kind: crm, erp or datacode (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to the .xlsx or .csv export (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Batch name (default: file name)")
	cmd.Flags().StringVar(&opts.month, "month", "", "Reporting month, e.g. April or 4月 (required)")
	cmd.Flags().StringVar(&opts.year, "year", "", "Reporting year, e.g. 2024 (required)")
	cmd.Flags().StringVar(&opts.description, "description", "", "Optional batch description")

	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

type uploader interface {
	UploadFile(ctx context.Context, kind service.UploadKind, input domain.UploadInput, fileName string, r io.Reader) (service.UploadResult, error)
}

func runImport(ctx context.Context, svc uploader, opts importOptions, out io.Writer) error {
	kind, err := service.ParseUploadKind(opts.kind)
	if err != nil {
		return err
	}
	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}
	defer f.Close()

	base := filepath.Base(opts.file)
	name := strings.TrimSpace(opts.name)
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	input := domain.UploadInput{
		FileName: base,
		Name:     name,
		Month:    opts.month,
		Year:     opts.year,
	}
	if opts.description != "" {
		description := opts.description
		input.Description = &description
	}

	result, err := svc.UploadFile(ctx, kind, input, base, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stored %s upload %d (%d records)\n", result.Upload.UploadType, result.Upload.UploadID, result.Records)
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"helpdesk-api/internal/config"
	"helpdesk-api/internal/tenant"
	"helpdesk-api/pkg/importer"
)

func newImportCommand() *cobra.Command {
	var (
		filePath    string
		orgID       int64
		tenantID    int64
		mappingPath string
		dryRun      bool
		maxErrors   int
	)

	cmd := &cobra.Command{
		Use:   "import-assets",
		Short: "Import assets from an Excel workbook",
		Long: `Upsert assets from an .xlsx workbook into one organisation, or into a tenant when --org is 0.
Rows are matched on the sheet's natural key and updated, otherwise inserted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if mappingPath == "" {
				mappingPath = cfg.ImportMappingFile
			}

			scope := tenant.ForTenant(tenantID)
			if orgID > 0 {
				scope = tenant.ForOrganisation(orgID, tenantID)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := pgxpool.New(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			file, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open Excel file: %w", err)
			}
			defer file.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing from %s into %s (dry_run=%v)\n", filePath, scope, dryRun)

			summary, err := importer.ImportExcel(ctx, db, file, importer.ImportOptions{
				Scope:       scope,
				MappingPath: mappingPath,
				DryRun:      dryRun,
				MaxErrors:   maxErrors,
			})
			printSummary(out, summary)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the .xlsx workbook (required)")
	cmd.Flags().Int64Var(&orgID, "org", 0, "Organisation ID; 0 imports into the tenant")
	cmd.Flags().Int64Var(&tenantID, "tenant", 1, "Tenant ID")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping file (defaults to IMPORT_MAPPING_FILE)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and write inside a rolled back transaction")
	cmd.Flags().IntVar(&maxErrors, "max-errors", 50, "Abort when more rows than this fail")
	cmd.MarkFlagRequired("file")
	return cmd
}

func printSummary(out io.Writer, summary importer.ImportSummary) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "IMPORT SUMMARY")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Total inserted: %d\n", summary.Inserted)
	fmt.Fprintf(out, "Total updated: %d\n", summary.Updated)
	fmt.Fprintf(out, "Total skipped: %d\n", summary.Skipped)
	fmt.Fprintf(out, "Total errors: %d\n", summary.Errors)
	fmt.Fprintf(out, "Dry run: %v\n", summary.DryRun)

	if len(summary.Sheets) > 0 {
		fmt.Fprintln(out, "\nSheet Details:")
		for _, sheet := range summary.Sheets {
			fmt.Fprintf(out, "  %s: inserted=%d, updated=%d, skipped=%d, errors=%d\n",
				sheet.Name, sheet.Inserted, sheet.Updated, sheet.Skipped, sheet.Errors)
			for _, sample := range sheet.Samples {
				fmt.Fprintf(out, "      Row %d: %s\n", sample.Row, sample.Message)
			}
		}
	}
}

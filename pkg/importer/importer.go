// Package importer loads ITAM assets from .xlsx workbooks described by a YAML mapping.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

// DefaultMappingPath is used when ImportOptions.MappingPath is empty
const DefaultMappingPath = "configs/mapping/assets.yaml"

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	Scope       tenant.Scope
	MappingPath string // default DefaultMappingPath
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version  int                    `yaml:"version"`
	Defaults map[string]string      `yaml:"defaults"`
	Sheets   map[string]SheetConfig `yaml:"sheets"`
}

type SheetConfig struct {
	NaturalKey []string                `yaml:"natural_key"`
	Aliases    map[string][]string     `yaml:"aliases"`
	Columns    map[string]ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// Row is one parsed spreadsheet line ready to be written
type Row struct {
	Sheet  string
	Line   int
	Keys   []string // natural key fields tried in order
	Fields map[string]any
}

var defaultNaturalKey = []string{"serial_number", "name"}

// assetFields are the asset columns a mapping may target
var assetFields = map[string]bool{
	"name":                true,
	"asset_type":          true,
	"serial_number":       true,
	"status":              true,
	"purchase_date":       true,
	"purchase_price":      true,
	"current_value":       true,
	"depreciation_method": true,
	"useful_life_years":   true,
	"notes":               true,
}

var assetStatuses = map[string]bool{
	models.AssetActive:      true,
	models.AssetMaintenance: true,
	models.AssetRetired:     true,
	models.AssetDisposed:    true,
}

// LoadMapping reads a mapping file
func LoadMapping(path string) (*MappingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMapping(data)
}

// ParseMapping decodes and checks a mapping document
func ParseMapping(data []byte) (*MappingConfig, error) {
	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if len(m.Sheets) == 0 {
		return nil, errors.New("mapping defines no sheets")
	}
	for name, sh := range m.Sheets {
		for header, col := range sh.Columns {
			if !assetFields[col.Field] {
				return nil, fmt.Errorf("sheet %s: column %s targets unknown field %q", name, header, col.Field)
			}
		}
		for _, key := range sh.NaturalKey {
			if !assetFields[key] {
				return nil, fmt.Errorf("sheet %s: natural key %q is not an asset field", name, key)
			}
		}
		hasName := false
		for _, col := range sh.Columns {
			hasName = hasName || col.Field == "name"
		}
		if !hasName {
			return nil, fmt.Errorf("sheet %s: no column maps to name", name)
		}
	}
	return &m, nil
}

// Parse reads every mapped sheet of an .xlsx workbook. Sheets without a mapping are
// ignored. Rows that fail to parse are counted in the summary and left out.
func Parse(data []byte, mapping *MappingConfig) ([]Row, ImportSummary, error) {
	summary := ImportSummary{Sheets: []SheetSummary{}}

	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	var rows []Row
	for _, sheet := range xlFile.Sheets {
		config, exists := mapping.Sheets[sheet.Name]
		if !exists {
			continue
		}
		parsed, sheetSummary := parseSheet(sheet, config, mapping.Defaults)
		rows = append(rows, parsed...)
		summary.Sheets = append(summary.Sheets, sheetSummary)
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors
	}
	return rows, summary, nil
}

func parseSheet(sheet *xlsx.Sheet, config SheetConfig, defaults map[string]string) ([]Row, SheetSummary) {
	summary := SheetSummary{Name: sheet.Name}
	if sheet.MaxRow == 0 {
		return nil, summary
	}

	headerRow, err := sheet.Row(0)
	if err != nil {
		summary.Errors++
		summary.Samples = append(summary.Samples, RowError{Sheet: sheet.Name, Row: 1,
			Message: "Failed to read header row: " + err.Error()})
		return nil, summary
	}

	// column index -> canonical header from the mapping
	columns := make(map[int]string)
	for col := 0; col < sheet.MaxCol; col++ {
		name := strings.TrimSpace(headerRow.GetCell(col).String())
		if name == "" {
			continue
		}
		if header, ok := canonicalHeader(name, config); ok {
			columns[col] = header
		}
	}

	keys := config.NaturalKey
	if len(keys) == 0 {
		keys = defaultNaturalKey
	}

	var rows []Row
	for idx := 1; idx < sheet.MaxRow; idx++ {
		row, err := sheet.Row(idx)
		if err != nil {
			break
		}

		raw := make(map[string]string)
		for col, header := range columns {
			if v := strings.TrimSpace(row.GetCell(col).String()); v != "" {
				raw[header] = v
			}
		}
		if len(raw) == 0 {
			summary.Skipped++
			continue
		}

		fields, err := buildFields(raw, config, defaults)
		if err != nil {
			summary.Errors++
			summary.Samples = appendSample(summary.Samples, RowError{Sheet: sheet.Name, Row: idx + 1, Message: err.Error()})
			continue
		}
		rows = append(rows, Row{Sheet: sheet.Name, Line: idx + 1, Keys: keys, Fields: fields})
	}
	return rows, summary
}

// canonicalHeader resolves a workbook header, or one of its aliases, to a mapped column
func canonicalHeader(name string, config SheetConfig) (string, bool) {
	for header := range config.Columns {
		if strings.EqualFold(header, name) {
			return header, true
		}
	}
	for header, aliases := range config.Aliases {
		for _, alias := range aliases {
			if strings.EqualFold(alias, name) {
				if _, ok := config.Columns[header]; ok {
					return header, true
				}
			}
		}
	}
	return "", false
}

func buildFields(raw map[string]string, config SheetConfig, defaults map[string]string) (map[string]any, error) {
	fields := make(map[string]any)
	for field, v := range defaults {
		if assetFields[field] {
			fields[field] = v
		}
	}

	headers := make([]string, 0, len(raw))
	for h := range raw {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	for _, header := range headers {
		col := config.Columns[header]
		v, err := parseValue(raw[header], col.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %v", header, err)
		}
		fields[col.Field] = v
	}

	if name, _ := fields["name"].(string); name == "" {
		return nil, errors.New("name is required")
	}
	if status, ok := fields["status"].(string); ok {
		status = strings.ToLower(strings.TrimSpace(status))
		if !assetStatuses[status] {
			return nil, fmt.Errorf("invalid status %q", fields["status"])
		}
		fields["status"] = status
	}
	return fields, nil
}

func parseValue(value, valueType string) (any, error) {
	switch strings.ToUpper(strings.TrimSuffix(valueType, "?")) {
	case "INT":
		return strconv.Atoi(value)
	case "NUMERIC":
		return strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	case "DATE":
		formats := []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"01/02/2006",
			"02-Jan-2006",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, value); err == nil {
				return t, nil
			}
		}
		// date cells come through as Excel serial numbers
		if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
			return xlsx.TimeFromExcelTime(serial, false), nil
		}
		return nil, fmt.Errorf("invalid date format: %s", value)
	default:
		return value, nil
	}
}

func appendSample(samples []RowError, e RowError) []RowError {
	if len(samples) >= 10 {
		return samples
	}
	return append(samples, e)
}

// querier is satisfied by pgx.Tx and *pgxpool.Conn
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ImportExcel parses a workbook and upserts its assets into the caller's scope in one
// transaction. A dry run rolls the transaction back.
func ImportExcel(ctx context.Context, db *pgxpool.Pool, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	if opts.MappingPath == "" {
		opts.MappingPath = DefaultMappingPath
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	mapping, err := LoadMapping(opts.MappingPath)
	if err != nil {
		return ImportSummary{DryRun: opts.DryRun}, fmt.Errorf("failed to load mapping config: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return ImportSummary{DryRun: opts.DryRun}, fmt.Errorf("failed to read Excel file: %w", err)
	}

	rows, summary, err := Parse(data, mapping)
	summary.DryRun = opts.DryRun
	if err != nil {
		return summary, err
	}
	if summary.Errors > opts.MaxErrors {
		return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
	}
	if db == nil {
		return summary, errors.New("no database configured for import")
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	// transaction-local settings for row-level security
	org := ""
	if opts.Scope.OrganisationID != nil {
		org = strconv.FormatInt(*opts.Scope.OrganisationID, 10)
	}
	if _, err := tx.Exec(ctx,
		"SELECT set_config('app.current_org_id', $1, true), set_config('app.current_tenant_id', $2, true)",
		org, strconv.FormatInt(opts.Scope.TenantID, 10)); err != nil {
		return summary, fmt.Errorf("failed to set scope: %w", err)
	}

	if err := Write(ctx, tx, opts.Scope, rows, &summary, opts.MaxErrors); err != nil {
		return summary, err
	}
	if opts.DryRun {
		return summary, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return summary, fmt.Errorf("commit import: %w", err)
	}
	return summary, nil
}

// Write upserts parsed rows. Rows match existing assets in scope on the sheet's
// natural key, in order. Each row runs under its own savepoint so a failed row is
// undone on its own and the rest of the import carries on.
func Write(ctx context.Context, q querier, scope tenant.Scope, rows []Row, summary *ImportSummary, maxErrors int) error {
	sheetIdx := make(map[string]int, len(summary.Sheets))
	for i, sh := range summary.Sheets {
		sheetIdx[sh.Name] = i
	}

	for _, row := range rows {
		i, ok := sheetIdx[row.Sheet]
		if !ok {
			summary.Sheets = append(summary.Sheets, SheetSummary{Name: row.Sheet})
			i = len(summary.Sheets) - 1
			sheetIdx[row.Sheet] = i
		}
		sheet := &summary.Sheets[i]

		if _, err := q.Exec(ctx, "SAVEPOINT import_row"); err != nil {
			return fmt.Errorf("row %d: savepoint: %w", row.Line, err)
		}
		id, err := findExisting(ctx, q, scope, row.Fields, row.Keys)
		if err == nil {
			if id > 0 {
				err = update(ctx, q, id, row.Fields)
			} else {
				err = insert(ctx, q, scope, row.Fields)
			}
		}
		if err != nil {
			if _, rbErr := q.Exec(ctx, "ROLLBACK TO SAVEPOINT import_row"); rbErr != nil {
				return fmt.Errorf("row %d: rollback: %w", row.Line, rbErr)
			}
			sheet.Errors++
			summary.Errors++
			sheet.Samples = appendSample(sheet.Samples, RowError{Sheet: row.Sheet, Row: row.Line, Message: err.Error()})
			if summary.Errors > maxErrors {
				return fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
			}
			continue
		}
		if _, err := q.Exec(ctx, "RELEASE SAVEPOINT import_row"); err != nil {
			return fmt.Errorf("row %d: release savepoint: %w", row.Line, err)
		}
		if id > 0 {
			sheet.Updated++
			summary.Updated++
		} else {
			sheet.Inserted++
			summary.Inserted++
		}
	}
	return nil
}

func findExisting(ctx context.Context, q querier, scope tenant.Scope, fields map[string]any, keys []string) (int64, error) {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok || value == nil || value == "" {
			continue
		}
		var id int64
		err := q.QueryRow(ctx, fmt.Sprintf(
			"SELECT id FROM assets WHERE %s = $1 AND %s = $2 ORDER BY id LIMIT 1", scope.Column(), key),
			scope.Value(), value).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, err
		}
	}
	return 0, nil
}

func sortedFields(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for f := range fields {
		if assetFields[f] {
			names = append(names, f)
		}
	}
	sort.Strings(names)
	return names
}

func insert(ctx context.Context, q querier, scope tenant.Scope, fields map[string]any) error {
	names := sortedFields(fields)
	cols := append([]string{"organisation_id", "tenant_id"}, names...)
	var org any
	if scope.OrganisationID != nil {
		org = *scope.OrganisationID
	}
	args := []any{org, scope.TenantID}
	placeholders := []string{"$1", "$2"}
	for _, f := range names {
		args = append(args, fields[f])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	_, err := q.Exec(ctx, fmt.Sprintf("INSERT INTO assets (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", ")), args...)
	return err
}

func update(ctx context.Context, q querier, id int64, fields map[string]any) error {
	names := sortedFields(fields)
	if len(names) == 0 {
		return nil
	}
	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, f := range names {
		args = append(args, fields[f])
		sets = append(sets, fmt.Sprintf("%s = $%d", f, len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	_, err := q.Exec(ctx, fmt.Sprintf("UPDATE assets SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args)), args...)
	return err
}

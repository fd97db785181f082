// Package export builds the downloadable spreadsheet reports.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"kasku/internal/domain"
)

// Scope names the slice of approved transactions covered by a report.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeIncome  Scope = "income"
	ScopeExpense Scope = "expense"
)

// ParseScope maps the query value onto a scope, defaulting to all.
func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeIncome:
		return ScopeIncome, nil
	case ScopeExpense:
		return ScopeExpense, nil
	case ScopeAll, "":
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("invalid export scope %q", raw)
	}
}

// Type returns the transaction type a scope filters by; empty for all.
func (s Scope) Type() domain.TransactionType {
	switch s {
	case ScopeIncome:
		return domain.TypeIncome
	case ScopeExpense:
		return domain.TypeExpense
	default:
		return ""
	}
}

const sheetName = "Laporan"

var headers = []string{"Nama Lengkap", "Username", "Nominal", "Keterangan", "Tanggal"}

// FileName embeds the scope label and the given date.
func FileName(scope Scope, now time.Time) string {
	return fmt.Sprintf("Laporan-%s-%s.xlsx", scope, now.Format("2006-01-02"))
}

// Workbook serializes the given transactions into a spreadsheet: one row
// per entry plus a synthetic total row whose Username column carries the
// literal "TOTAL". Pure function of its input.
func Workbook(txs []domain.Transaction) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	var total float64
	for i, tx := range txs {
		total += tx.Nominal
		values := []any{
			tx.FullName,
			tx.Username,
			tx.Nominal,
			tx.Description,
			tx.CreatedAt.Format("02/01/2006"),
		}
		if err := writeRow(f, i+2, values); err != nil {
			return nil, err
		}
	}

	totalRow := []any{"", "TOTAL", total, "", ""}
	if err := writeRow(f, len(txs)+2, totalRow); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf, nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}

package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/model"
)

// ErrSourceUnavailable marks a workbook that cannot be opened. Callers
// fall back to the configured alternate source before giving up.
var ErrSourceUnavailable = errors.New("loader: source unavailable")

// SchemaError reports required columns missing from the header row.
// It is fatal; there is no sensible degraded mode without them.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("loader: required columns missing: %s", strings.Join(e.Missing, ", "))
}

// Required column titles, matched case-insensitively against the
// header row after trimming.
const (
	colSystem         = "System"
	colSystemDescr    = "System Descr."
	colSubsystem      = "SubSystem"
	colSubsystemDescr = "SubSystem Descr."
	colRecordType     = "ITR"
	colCertStatus     = "End Cert."
)

// Optional deduplication columns. Older workbooks predate them.
const (
	colItem = "ITEM"
	colRule = "Rule"
	colTest = "Test"
	colForm = "Form"
)

// RawTable is the loader output: normalized records plus the
// capability flag downstream code uses to decide whether
// deduplication can run.
type RawTable struct {
	Records         []model.Record
	HasDedupColumns bool
}

// Options configures Load.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// Load reads the workbook at path and returns its rows as records.
// A missing or unopenable file returns ErrSourceUnavailable; a header
// row without all required columns returns *SchemaError.
func Load(path string, opts Options) (*RawTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "stat %s", path)
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "open %s: %v", path, err)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, &SchemaError{Missing: requiredColumns()}
	}

	cols, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	table := &RawTable{HasDedupColumns: cols.hasDedup()}
	systemOf := map[string]string{} // first-seen subsystem -> system mapping
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		rec := cols.record(cells)

		// Skip fully blank trailing rows.
		if rec.SubsystemID == "" && rec.RecordType == "" {
			continue
		}

		if prev, ok := systemOf[rec.SubsystemID]; ok && prev != rec.SystemID {
			zap.L().Warn("inconsistent system mapping, keeping first seen",
				zap.String("subsystem", rec.SubsystemID),
				zap.String("first_system", prev),
				zap.String("later_system", rec.SystemID),
			)
			rec.SystemID = prev
		} else if !ok {
			systemOf[rec.SubsystemID] = rec.SystemID
		}

		table.Records = append(table.Records, rec)
	}

	zap.L().Info("workbook loaded",
		zap.String("path", path),
		zap.Int("records", len(table.Records)),
		zap.Bool("has_dedup_columns", table.HasDedupColumns),
	)

	return table, nil
}

func requiredColumns() []string {
	return []string{colSystem, colSystemDescr, colSubsystem, colSubsystemDescr, colRecordType, colCertStatus}
}

// columnMap holds header cell indexes, -1 for absent optional columns.
type columnMap struct {
	system, systemDescr       int
	subsystem, subsystemDescr int
	recordType, certStatus    int
	item, rule, test, form    int
}

func (c columnMap) hasDedup() bool {
	return c.item >= 0 || c.rule >= 0 || c.test >= 0 || c.form >= 0
}

func mapHeader(header []string) (columnMap, error) {
	idx := func(title string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), title) {
				return i
			}
		}
		return -1
	}

	cols := columnMap{
		system:         idx(colSystem),
		systemDescr:    idx(colSystemDescr),
		subsystem:      idx(colSubsystem),
		subsystemDescr: idx(colSubsystemDescr),
		recordType:     idx(colRecordType),
		certStatus:     idx(colCertStatus),
		item:           idx(colItem),
		rule:           idx(colRule),
		test:           idx(colTest),
		form:           idx(colForm),
	}

	var missing []string
	for _, req := range []struct {
		title string
		pos   int
	}{
		{colSystem, cols.system},
		{colSystemDescr, cols.systemDescr},
		{colSubsystem, cols.subsystem},
		{colSubsystemDescr, cols.subsystemDescr},
		{colRecordType, cols.recordType},
		{colCertStatus, cols.certStatus},
	} {
		if req.pos < 0 {
			missing = append(missing, req.title)
		}
	}
	if len(missing) > 0 {
		return columnMap{}, &SchemaError{Missing: missing}
	}

	return cols, nil
}

func (c columnMap) record(cells []string) model.Record {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}
	optional := func(i int) *string {
		if i < 0 {
			return nil
		}
		v := cell(i)
		return &v
	}

	return model.Record{
		SystemID:       cell(c.system),
		SystemDescr:    cell(c.systemDescr),
		SubsystemID:    cell(c.subsystem),
		SubsystemDescr: cell(c.subsystemDescr),
		RecordType:     cell(c.recordType),
		CertStatusRaw:  cell(c.certStatus),
		Item:           optional(c.item),
		Rule:           optional(c.rule),
		Test:           optional(c.test),
		Form:           optional(c.form),
	}
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("loader: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

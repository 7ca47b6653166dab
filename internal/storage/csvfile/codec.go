package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Header is the column layout written by Encode.
var Header = []string{"id", "date", "category", "description", "amount"}

var required = []string{"date", "category", "description", "amount"}

// ErrMalformed marks content that cannot be read back as a transaction table.
var ErrMalformed = errors.New("malformed transactions file")

// Encode writes the header followed by one record per row.
func Encode(w io.Writer, rows []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{r.ID, r.Date.ISO(), string(r.Category), r.Description, strconv.FormatInt(r.Amount, 10)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a table written by Encode. Columns are matched by header name, so files
// without an id column load too; their rows get IDs of the form "legacy-<line>".
// An empty input is an empty table.
func Decode(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: line 1: missing column %q", ErrMalformed, name)
		}
	}
	idCol, hasID := cols["id"]

	var rows []core.Transaction
	seen := make(map[string]struct{})
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		line, _ := cr.FieldPos(0)

		tx, err := decodeRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if hasID {
			tx.ID = strings.TrimSpace(rec[idCol])
		}
		if tx.ID == "" {
			tx.ID = "legacy-" + strconv.Itoa(line)
		}
		if _, dup := seen[tx.ID]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate id %q", ErrMalformed, line, tx.ID)
		}
		seen[tx.ID] = struct{}{}
		rows = append(rows, tx)
	}
	return rows, nil
}

func decodeRecord(rec []string, cols map[string]int) (core.Transaction, error) {
	var tx core.Transaction

	d, err := core.ParseDate(rec[cols["date"]])
	if err != nil {
		return tx, err
	}
	c, err := core.ParseCategory(rec[cols["category"]])
	if err != nil {
		return tx, err
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(rec[cols["amount"]]), 10, 64)
	if err != nil {
		return tx, fmt.Errorf("%w: %q", core.ErrInvalidAmount, rec[cols["amount"]])
	}

	tx = core.Transaction{Date: d, Category: c, Description: rec[cols["description"]], Amount: amount}
	if err := tx.ValidateStored(); err != nil {
		return tx, err
	}
	return tx, nil
}

// Package importer bulk-creates products from an xlsx sheet.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/subscription"
)

const MaxRows = 5000

var (
	ErrEmptySheet    = errors.New("spreadsheet has no data rows")
	ErrMissingColumn = errors.New("spreadsheet is missing the name or price column")
	ErrTooManyRows   = fmt.Errorf("spreadsheet has more than %d rows", MaxRows)
	ErrUnreadable    = errors.New("file is not a readable xlsx spreadsheet")
)

type RowStatus string

const (
	RowCreated RowStatus = "created"
	RowFailed  RowStatus = "failed"
	RowSkipped RowStatus = "skipped"
)

type RowResult struct {
	Row       int       `json:"row"`
	Name      string    `json:"name"`
	Status    RowStatus `json:"status"`
	ProductID uint      `json:"product_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type Result struct {
	Total        int         `json:"total"`
	Created      int         `json:"created"`
	Failed       int         `json:"failed"`
	Skipped      int         `json:"skipped"`
	LimitReached bool        `json:"limit_reached"`
	Rows         []RowResult `json:"rows"`
}

type Importer struct {
	db       *gorm.DB
	enforcer *subscription.Enforcer
	log      *zap.Logger
}

func New(db *gorm.DB, enforcer *subscription.Enforcer, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{db: db, enforcer: enforcer, log: log}
}

// columns maps header names to column indexes. Headers are matched
// case-insensitively.
type columns map[string]int

func parseHeader(header []string) (columns, error) {
	cols := make(columns)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, ErrMissingColumn
	}
	if _, ok := cols["price"]; !ok {
		return nil, ErrMissingColumn
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ImportProducts reads the first sheet of an xlsx workbook and creates one
// product per row. Creation stops once the store reaches its product limit;
// the remaining rows are reported as skipped.
func (im *Importer) ImportProducts(ctx context.Context, storeID uint, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}
	if len(rows)-1 > MaxRows {
		return nil, ErrTooManyRows
	}

	cols, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	check, err := im.enforcer.CanCreateProduct(ctx, storeID)
	if err != nil {
		return nil, err
	}
	remaining := -1
	if check.Limit != model.Unlimited {
		remaining = check.Limit - int(check.Current)
		if remaining < 0 {
			remaining = 0
		}
	}

	result := &Result{Rows: make([]RowResult, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rowNum := i + 2
		res := RowResult{Row: rowNum, Name: cols.get(row, "name")}
		result.Total++

		if remaining == 0 {
			result.LimitReached = true
			res.Status = RowSkipped
			res.Error = "product limit reached"
			result.Skipped++
			result.Rows = append(result.Rows, res)
			continue
		}

		product, err := buildProduct(storeID, cols, row)
		if err == nil {
			err = im.db.WithContext(ctx).Create(product).Error
		}
		if err != nil {
			res.Status = RowFailed
			res.Error = err.Error()
			result.Failed++
		} else {
			res.Status = RowCreated
			res.ProductID = product.ID
			result.Created++
			if remaining > 0 {
				remaining--
			}
		}
		result.Rows = append(result.Rows, res)
	}

	im.log.Info("product import finished",
		zap.Uint("store_id", storeID),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func buildProduct(storeID uint, cols columns, row []string) (*model.Product, error) {
	name := cols.get(row, "name")
	if name == "" {
		return nil, errors.New("name is required")
	}
	price, err := strconv.ParseFloat(cols.get(row, "price"), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("invalid price %q", cols.get(row, "price"))
	}

	p := &model.Product{
		StoreID:     storeID,
		Name:        name,
		SKU:         cols.get(row, "sku"),
		Description: cols.get(row, "description"),
		Price:       price,
		Currency:    strings.ToUpper(cols.get(row, "currency")),
		Status:      model.ProductStatusDraft,
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if s := cols.get(row, "stock"); s != "" {
		stock, err := strconv.Atoi(s)
		if err != nil || stock < 0 {
			return nil, fmt.Errorf("invalid stock %q", s)
		}
		p.Stock = stock
	}
	if s := strings.ToUpper(cols.get(row, "status")); s != "" {
		status := model.ProductStatus(s)
		if !status.Valid() {
			return nil, fmt.Errorf("invalid status %q", s)
		}
		p.Status = status
	}
	return p, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

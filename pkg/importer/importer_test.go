package importer

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"storefront_backend/internal/model"
	"storefront_backend/internal/testdb"
	"storefront_backend/pkg/subscription"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportProducts(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo", model.PlanBasic, 100, 500)
	im := New(db, subscription.NewEnforcer(db, nil), nil)

	buf := workbook(t, [][]interface{}{
		{"Name", "SKU", "Price", "Stock", "Status"},
		{"Blue Mug", "MUG-1", "12.5", "4", "active"},
		{"", "", "", "", ""},
		{"Red Mug", "MUG-2", "abc", "1", ""},
		{"Green Mug", "MUG-3", "9", "", ""},
	})

	res, err := im.ImportProducts(context.Background(), store.ID, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.LimitReached)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, 2, res.Rows[0].Row)
	assert.Equal(t, RowCreated, res.Rows[0].Status)
	assert.Equal(t, 4, res.Rows[1].Row)
	assert.Equal(t, RowFailed, res.Rows[1].Status)

	var mug model.Product
	require.NoError(t, db.Where("store_id = ? AND sku = ?", store.ID, "MUG-1").First(&mug).Error)
	assert.Equal(t, "blue-mug", mug.Slug)
	assert.Equal(t, model.ProductStatusActive, mug.Status)
	assert.Equal(t, 4, mug.Stock)
}

func TestImportStopsAtLimit(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo", model.PlanFree, 3, 50)
	require.NoError(t, db.Create(&model.Product{StoreID: store.ID, Name: "Existing", Price: 1}).Error)
	im := New(db, subscription.NewEnforcer(db, nil), nil)

	rows := [][]interface{}{{"name", "price"}}
	for i := 0; i < 4; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("Item %d", i), "5"})
	}

	res, err := im.ImportProducts(context.Background(), store.ID, workbook(t, rows))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.True(t, res.LimitReached)

	var count int64
	db.Model(&model.Product{}).Where("store_id = ?", store.ID).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestImportRejectsBadSheets(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo", model.PlanBasic, 100, 500)
	im := New(db, subscription.NewEnforcer(db, nil), nil)
	ctx := context.Background()

	_, err := im.ImportProducts(ctx, store.ID, workbook(t, [][]interface{}{{"name", "price"}}))
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = im.ImportProducts(ctx, store.ID, workbook(t, [][]interface{}{{"title", "cost"}, {"Mug", "3"}}))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = im.ImportProducts(ctx, store.ID, bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)

	_, err = im.ImportProducts(ctx, 999, workbook(t, [][]interface{}{{"name", "price"}, {"Mug", "3"}}))
	assert.ErrorIs(t, err, subscription.ErrStoreNotFound)
}

func TestImportRejectsNonFinitePrices(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo", model.PlanBasic, 100, 500)
	im := New(db, subscription.NewEnforcer(db, nil), nil)

	buf := workbook(t, [][]interface{}{
		{"name", "price"},
		{"Mug", "NaN"},
		{"Cup", "Inf"},
		{"Plate", "-1"},
		{"Bowl", "2.5"},
	})

	res, err := im.ImportProducts(context.Background(), store.ID, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Failed)

	var count int64
	db.Model(&model.Product{}).Where("store_id = ?", store.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

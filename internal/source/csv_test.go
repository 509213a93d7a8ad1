package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/toyland-batch/internal/domain/order"
)

const ordersCSV = `order_id,product_id,product_name,quantity,unit_price,customer_name
O1,P1,Toy Robot,2,10.00,Alice Smith
O2,P2,Board Game
`

func writeFeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestOpen_EmptyFile(t *testing.T) {
	_, err := Open(writeFeed(t, "empty.csv", ""))
	require.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestFeed_ReadsRows(t *testing.T) {
	feed, err := Open(writeFeed(t, "orders.csv", ordersCSV))
	require.NoError(t, err)
	defer func() { _ = feed.Close() }()

	raw, err := feed.Next()
	require.NoError(t, err)
	assert.Equal(t, "O1", raw[order.FieldOrderID])
	assert.Equal(t, "Toy Robot", raw[order.FieldProductName])
	assert.Equal(t, "2", raw[order.FieldQuantity])
	assert.Equal(t, "10.00", raw[order.FieldUnitPrice])
	assert.Equal(t, "Alice Smith", raw[order.FieldCustomerName])

	// Short rows yield empty strings for the missing trailing fields.
	raw, err = feed.Next()
	require.NoError(t, err)
	assert.Equal(t, "O2", raw[order.FieldOrderID])
	assert.Equal(t, "", raw[order.FieldQuantity])
	assert.Equal(t, "", raw[order.FieldUnitPrice])

	_, err = feed.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFeed_NormalizesHeader(t *testing.T) {
	feed, err := Open(writeFeed(t, "orders.csv", "Order_ID, Product_Name \nO1,Toy Robot\n"))
	require.NoError(t, err)
	defer func() { _ = feed.Close() }()

	assert.Equal(t, []string{order.FieldOrderID, order.FieldProductName}, feed.Header())

	raw, err := feed.Next()
	require.NoError(t, err)
	assert.Equal(t, "O1", raw[order.FieldOrderID])
	assert.Equal(t, "Toy Robot", raw[order.FieldProductName])
}

func TestFeed_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(ordersCSV))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	feed, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = feed.Close() }()

	raw, err := feed.Next()
	require.NoError(t, err)
	assert.Equal(t, "O1", raw[order.FieldOrderID])
}

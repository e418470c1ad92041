package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-gateway/internal/utils"
)

func TestTokenCommand(t *testing.T) {
	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--secret", "s3cret", "--user", "7", "--role", "cashier"})
	require.NoError(t, cmd.Execute())

	claims, err := utils.ParseAccessToken("s3cret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "cashier", claims.Role)
	assert.Equal(t, "main", claims.Branch)
	assert.Nil(t, claims.Permissions)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cmd := tokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--user", "7", "--role", "waiter"})
	assert.Error(t, cmd.Execute())
}

func TestReceiptCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"id": 10, "order_number": "ORD-20240501-0010", "order_type": "Table", "status": "Paid",
		"items": [{"id": 1, "menu_item": {"name": "Chicken Momo"}, "quantity": 2, "price": 250, "subtotal": 500}],
		"gross_amount": 500, "discount": 0, "net_amount": 550, "paid_amount": 550,
		"created_at": "2024-05-01T12:00:00"
	}`), 0o600))

	cmd := receiptCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--file", file, "--title", "Himalayan Cafe"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "HIMALAYAN CAFE")
	assert.Contains(t, text, "ORD-20240501-0010")
	assert.Contains(t, text, "Chicken Momo")
}

func TestReceiptCommandBadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(file, []byte(`not json`), 0o600))
	cmd := receiptCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", file})
	assert.Error(t, cmd.Execute())
}

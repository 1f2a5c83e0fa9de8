// internal/utils/invoice_test.go
package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoiceNumber(t *testing.T) {
	orderID := uuid.MustParse("3f2504e0-4f89-41d3-9a0c-0305e82c3301")
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	number := GenerateInvoiceNumber(orderID, at)

	assert.Equal(t, "INV-20260314-E82C3301", number)
}

func TestGenerateInvoiceNumberStable(t *testing.T) {
	orderID := uuid.New()
	at := time.Now()

	first := GenerateInvoiceNumber(orderID, at)
	second := GenerateInvoiceNumber(orderID, at)

	require.Equal(t, first, second)
	assert.Regexp(t, `^INV-\d{8}-[0-9A-F]{8}$`, first)
}

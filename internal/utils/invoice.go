// internal/utils/invoice.go
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateInvoiceNumber builds a human-readable invoice number from the
// order date and the tail of the order id. Assigned once, on the first
// invoice request.
func GenerateInvoiceNumber(orderID uuid.UUID, at time.Time) string {
	suffix := strings.ReplaceAll(orderID.String(), "-", "")
	suffix = strings.ToUpper(suffix[len(suffix)-8:])
	return fmt.Sprintf("INV-%s-%s", at.Format("20060102"), suffix)
}

package pricing

import "github.com/Eursukkul/courier-backoffice/internal/models"

// IsEligibleForInvoicing reports whether b may be included in a new invoice.
func IsEligibleForInvoicing(b *models.Booking) bool {
	return b.CurrentStatus == models.StatusDelivered && !b.InvoiceGenerated
}

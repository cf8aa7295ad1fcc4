package pricing

import (
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/jinzhu/now"
)

var transitDays = map[models.ServiceType]int{
	models.ServiceSameDay:       0,
	models.ServiceExpress:       1,
	models.ServiceOvernight:     1,
	models.ServiceStandard:      3,
	models.ServiceEconomy:       5,
	models.ServiceInternational: 7,
}

const defaultTransitDays = 3

func TransitDays(st models.ServiceType) int {
	if d, ok := transitDays[st]; ok {
		return d
	}
	return defaultTransitDays
}

// EstimatedDelivery returns the expected delivery day, or nil once the shipment is delivered or cancelled.
func EstimatedDelivery(bookingDate time.Time, st models.ServiceType, status models.ShipmentStatus) *time.Time {
	if status == models.StatusDelivered || status == models.StatusCancelled {
		return nil
	}
	eta := now.With(bookingDate).BeginningOfDay().AddDate(0, 0, TransitDays(st))
	return &eta
}

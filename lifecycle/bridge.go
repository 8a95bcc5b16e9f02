package lifecycle

import (
	"animal-rescue-service/models"

	"github.com/apex/log"
)

// MultiBridge fans one event out to several bridges. Each bridge gets
// the event even when an earlier one fails.
type MultiBridge struct {
	bridges []NotificationBridge
}

// NewMultiBridge builds a fan-out over the given bridges. Nil entries
// are skipped.
func NewMultiBridge(bridges ...NotificationBridge) *MultiBridge {
	kept := make([]NotificationBridge, 0, len(bridges))
	for _, b := range bridges {
		if b != nil {
			kept = append(kept, b)
		}
	}
	return &MultiBridge{bridges: kept}
}

// Publish delivers the event to every bridge, logging individual
// failures and reporting the last one.
func (m *MultiBridge) Publish(trackingID string, status models.ReportStatus, coords *models.Coordinates) error {
	var last error
	for _, b := range m.bridges {
		if err := b.Publish(trackingID, status, coords); err != nil {
			log.Errorf("Bridge publish failed for %s: %v", trackingID, err)
			last = err
		}
	}
	return last
}

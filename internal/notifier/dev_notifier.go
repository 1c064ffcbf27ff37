package notifier

import (
	"github.com/tourline/tourline-accounts/pkg/logger"
)

// DevNotifier logs messages instead of sending them.
type DevNotifier struct{}

func NewDevNotifier() *DevNotifier {
	return &DevNotifier{}
}

func (d *DevNotifier) SendTrialWelcome(phone, name string, hoursLeft int) error {
	logger.Info("[DEV SMS] Trial welcome",
		"to", phone,
		"name", name,
		"hours_left", hoursLeft,
	)
	return nil
}

func (d *DevNotifier) SendTrialExpiryNotice(phone, name string) error {
	logger.Info("[DEV SMS] Trial expiry notice",
		"to", phone,
		"name", name,
	)
	return nil
}

func (d *DevNotifier) SendReactivationNotice(phone, name string) error {
	logger.Info("[DEV SMS] Reactivation notice",
		"to", phone,
		"name", name,
	)
	return nil
}

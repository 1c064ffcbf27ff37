package notifier

// Service dispatches account lifecycle messages to the customer's phone.
// Delivery is owned by the messaging platform; this service only needs
// the dispatch contract.
type Service interface {
	SendTrialWelcome(phone, name string, hoursLeft int) error
	SendTrialExpiryNotice(phone, name string) error
	SendReactivationNotice(phone, name string) error
}

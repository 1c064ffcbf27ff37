package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

// MailerSendClient dispatches SMS through the MailerSend API.
type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    string
	enabled bool
}

func NewMailerSend(apiKey, senderNumber string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && senderNumber != "",
		from:    senderNumber,
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendTrialWelcome(phone, name string, hoursLeft int) error {
	text := fmt.Sprintf(
		"Welcome to Tourline, %s! Your trial account is ready. You have %d hours to explore your sample itinerary.",
		name, hoursLeft)
	return m.sendSMS(phone, text)
}

func (m *MailerSendClient) SendTrialExpiryNotice(phone, name string) error {
	text := fmt.Sprintf(
		"Hi %s, your Tourline trial window has ended. Log in again to restart it, or contact us to activate your account.",
		name)
	return m.sendSMS(phone, text)
}

func (m *MailerSendClient) SendReactivationNotice(phone, name string) error {
	text := fmt.Sprintf(
		"Welcome back, %s! Your Tourline account is active again and your upcoming trip is ready to review.",
		name)
	return m.sendSMS(phone, text)
}

func (m *MailerSendClient) sendSMS(phone, text string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Sms.NewMessage()
	msg.SetFrom(m.from)
	msg.SetTo([]string{phone})
	msg.SetText(text)

	_, err := m.client.Sms.Send(ctx, msg)
	return err
}

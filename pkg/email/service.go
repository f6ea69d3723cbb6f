package email

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Campaign keys
const (
	CampaignAbandonedCheckout = "abandoned_checkout_reminder"
)

// ErrUnknownCampaign is returned for campaign keys without a template
var ErrUnknownCampaign = errors.New("unknown email campaign")

// Message is a rendered email
type Message struct {
	Subject   string
	HTML      string
	PlainText string
}

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	baseURL     string
	sendGridKey string
	useSendGrid bool
	log         logger.Logger
}

// NewService creates a new email service
// If sendGridAPIKey is provided, emails will be sent via SendGrid
// Otherwise, emails will be logged (development mode)
func NewService(fromEmail, fromName, baseURL, sendGridAPIKey string, log logger.Logger) *Service {
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Info("email service initialized with SendGrid")
	} else {
		log.Warn("email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		baseURL:     strings.TrimRight(baseURL, "/"),
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
		log:         log,
	}
}

// Render builds the message for a campaign
func (s *Service) Render(campaignKey, firstName string) (Message, error) {
	name := firstName
	if name == "" {
		name = "there"
	}

	switch campaignKey {
	case CampaignAbandonedCheckout:
		checkoutURL := fmt.Sprintf("%s/checkout", s.baseURL)
		return Message{
			Subject: "You left something in your cart",
			HTML: fmt.Sprintf(`
		<html>
		<body>
			<p>Hi %s,</p>
			<p>We noticed you started enrolling but didn't finish checking out. Your spot is still waiting for you.</p>
			<p><a href="%s" style="background-color: #7A5AF8; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Complete my enrollment</a></p>
			<p>If you have any questions, just reply to this email.</p>
			<p>Warmly,<br>%s</p>
		</body>
		</html>
	`, name, checkoutURL, s.fromName),
			PlainText: fmt.Sprintf(`
Hi %s,

We noticed you started enrolling but didn't finish checking out. Your spot is still waiting for you.

Complete your enrollment: %s

If you have any questions, just reply to this email.

Warmly,
%s
	`, name, checkoutURL, s.fromName),
		}, nil
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownCampaign, campaignKey)
	}
}

// SendCampaign renders and sends a campaign email
func (s *Service) SendCampaign(toEmail, firstName, campaignKey string) error {
	msg, err := s.Render(campaignKey, firstName)
	if err != nil {
		return err
	}
	return s.SendRawEmail(toEmail, firstName, msg.Subject, msg.HTML, msg.PlainText)
}

// SendRawEmail sends an email with custom subject and body content.
// Uses SendGrid in production, logs in development.
func (s *Service) SendRawEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody)
	}

	s.log.Info("email not sent (development mode)",
		"subject", subject,
		"to", toEmail,
		"from", s.fromEmail,
	)
	return nil
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		s.log.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	s.log.Info("email sent", "to", toEmail, "sendgrid_status", response.StatusCode)
	return nil
}

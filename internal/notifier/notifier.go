package notifier

import (
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/aveline/ticketing/internal/models"
)

// Notifier sends purchase confirmations. Failures are the caller's to log;
// they must never undo a payment-status commit.
type Notifier interface {
	SendTicketEmail(ticket *models.Ticket) error
	SendDonationConfirmation(donation *models.Donation) error
}

// SMTPConfig is the outbound mail endpoint.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Mailer delivers confirmations over SMTP with the ticket QR code attached
// as a PNG.
type Mailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewMailer(cfg SMTPConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

func (m *Mailer) newMail() *mailyak.MailYak {
	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	mail := mailyak.New(addr, auth)
	mail.From(m.cfg.From)
	return mail
}

func (m *Mailer) SendTicketEmail(ticket *models.Ticket) error {
	if ticket.QRCode == nil {
		return fmt.Errorf("notifier: ticket %s has no token to send", ticket.ID)
	}

	png, err := qrcode.Encode(*ticket.QRCode, qrcode.Medium, 300)
	if err != nil {
		return fmt.Errorf("notifier: rendering QR code: %w", err)
	}

	mail := m.newMail()
	mail.To(ticket.CustomerEmail)
	mail.Subject(fmt.Sprintf("Your ticket for %s", ticket.PurchasableTitle()))
	mail.Plain().Set(fmt.Sprintf(
		"Hello %s,\n\nYour payment was received. Present the attached QR code at the entrance.\n\nTicket: %s\nTotal: %s EUR\n",
		ticket.CustomerName, ticket.ID, ticket.TotalPrice.StringFixed(2)))
	mail.AttachInlineWithMimeType("ticket-qr.png", newByteReader(png), "image/png")

	if err := mail.Send(); err != nil {
		return fmt.Errorf("notifier: sending ticket email: %w", err)
	}
	m.logger.Info("ticket email sent",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("to", ticket.CustomerEmail))
	return nil
}

func (m *Mailer) SendDonationConfirmation(donation *models.Donation) error {
	mail := m.newMail()
	mail.To(donation.DonorEmail)
	mail.Subject("Thank you for your donation")
	mail.Plain().Set(fmt.Sprintf(
		"Hello %s,\n\nWe received your donation of %s EUR. Thank you for your support.\n",
		donation.DonorName, donation.Amount.StringFixed(2)))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("notifier: sending donation email: %w", err)
	}
	m.logger.Info("donation email sent",
		zap.String("donation_id", donation.ID.String()),
		zap.String("to", donation.DonorEmail))
	return nil
}

package notifier

import (
	"bytes"
	"io"

	"go.uber.org/zap"

	"github.com/aveline/ticketing/internal/models"
)

func newByteReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

// LogNotifier records confirmations instead of delivering them. Used in
// development and when no SMTP endpoint is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendTicketEmail(ticket *models.Ticket) error {
	n.logger.Info("ticket confirmation (not delivered, no SMTP configured)",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("to", ticket.CustomerEmail))
	return nil
}

func (n *LogNotifier) SendDonationConfirmation(donation *models.Donation) error {
	n.logger.Info("donation confirmation (not delivered, no SMTP configured)",
		zap.String("donation_id", donation.ID.String()),
		zap.String("to", donation.DonorEmail))
	return nil
}

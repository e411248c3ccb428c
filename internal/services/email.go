package services

import (
	"context"
	"fmt"
	"log"

	"konzertticketing/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendTicketConfirmation sends the post-purchase email using the "ticket_confirmation" template.
func (s *emailService) SendTicketConfirmation(ctx context.Context, data *domain.TicketConfirmationEmailData) error {
	if data == nil {
		return fmt.Errorf("ticket confirmation data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("ticket_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render ticket_confirmation template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send ticket confirmation email: %w", err)
	}
	log.Printf("[EMAIL] Ticket confirmation sent to %s", data.Email)
	return nil
}

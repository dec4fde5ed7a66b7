package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/config"
	"github.com/vertexautomation/site-server/internal/email"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/metrics"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/util"
)

type ContactService struct {
	repo     repository.ContactRepository
	limiter  *RateLimiter
	mailer   email.Sender
	notifyTo string
}

func NewContactService(repo repository.ContactRepository, limiter *RateLimiter, mailer email.Sender, notifyTo string) *ContactService {
	return &ContactService{repo: repo, limiter: limiter, mailer: mailer, notifyTo: notifyTo}
}

// Submit stores a contact form message and notifies staff. The notification
// is best effort; the message is kept either way.
func (s *ContactService) Submit(ctx context.Context, ip string, p model.CreateContactMessageParams) (*model.ContactMessage, error) {
	if err := validateContact(&p); err != nil {
		return nil, err
	}

	if allowed, _ := s.limiter.CheckLimit(ctx, "contact:"+ip, config.ContactMaxPerWindow, config.ContactWindow); !allowed {
		audit.Log(ctx, audit.Event{Type: audit.EventRateLimitExceed, IP: ip,
			Details: map[string]interface{}{"scope": "contact"}})
		return nil, apperrors.RateLimitExceeded()
	}

	msg, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}
	metrics.RecordContactMessage()

	if s.mailer != nil && s.notifyTo != "" {
		s.notify(ctx, msg)
	}
	return msg, nil
}

func (s *ContactService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error) {
	msgs, err := s.repo.FindAll(ctx, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return msgs, nil
}

func (s *ContactService) MarkRead(ctx context.Context, id string) error {
	ok, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if !ok {
		return apperrors.NotFound("Message")
	}
	return nil
}

func (s *ContactService) notify(ctx context.Context, m *model.ContactMessage) {
	vars := email.ContactVars{Name: m.Name, Email: m.Email, Message: m.Message}
	if m.Company != nil {
		vars.Company = *m.Company
	}
	if m.Phone != nil {
		vars.Phone = *m.Phone
	}
	out, err := email.ContactMessage(s.notifyTo, vars)
	if err == nil {
		err = s.mailer.Send(ctx, out)
	}
	if err != nil {
		log.Error().Err(err).Str("messageId", m.ID).Msg("failed to send contact notification")
	}
}

func validateContact(p *model.CreateContactMessageParams) error {
	if err := requireText("name", &p.Name, 200); err != nil {
		return err
	}
	p.Email = util.NormalizeEmail(p.Email)
	if !util.IsValidEmail(p.Email) {
		return apperrors.InvalidInput("email", "must be a valid address")
	}
	if err := requireText("message", &p.Message, 5000); err != nil {
		return err
	}
	p.Company = trimOptional(p.Company)
	p.Phone = trimOptional(p.Phone)
	return nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/cookieconsent"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/metrics"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
)

type ConsentMode string

const (
	ConsentAcceptAll     ConsentMode = "accept_all"
	ConsentEssentialOnly ConsentMode = "essential_only"
	ConsentCustom        ConsentMode = "custom"
)

// ResolvePreferences turns a banner choice into preferences. Essential is
// always on whatever the mode.
func ResolvePreferences(mode ConsentMode, analytics, marketing bool) (model.CookiePreferences, error) {
	switch mode {
	case ConsentAcceptAll:
		return model.NewCookiePreferences(true, true), nil
	case ConsentEssentialOnly:
		return model.NewCookiePreferences(false, false), nil
	case ConsentCustom:
		return model.NewCookiePreferences(analytics, marketing), nil
	default:
		return model.CookiePreferences{}, apperrors.InvalidInput("mode", "must be accept_all, essential_only or custom")
	}
}

type ConsentCheck struct {
	Statuses     []model.ConsentStatus `json:"statuses"`
	Pending      []model.ConsentStatus `json:"pending"`
	NeedsConsent bool                  `json:"needsConsent"`
}

type SubmitConsentRequest struct {
	UserID    string
	Mode      ConsentMode
	Analytics bool
	Marketing bool
	UserAgent string
	IP        string
}

type ConsentResult struct {
	State   cookieconsent.State   `json:"state"`
	Records []model.ConsentRecord `json:"records"`
}

type ConsentService struct {
	repo  repository.ConsentRepository
	legal *LegalService
	now   func() time.Time
}

func NewConsentService(repo repository.ConsentRepository, legal *LegalService) *ConsentService {
	return &ConsentService{repo: repo, legal: legal, now: time.Now}
}

// Check reports, per active document type, whether the user still has to
// accept the current version.
func (s *ConsentService) Check(ctx context.Context, userID string) (*ConsentCheck, error) {
	statuses, err := s.repo.FindStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find consent status: %w", err)
	}
	check := &ConsentCheck{Statuses: statuses, Pending: []model.ConsentStatus{}}
	for _, st := range statuses {
		if st.NeedsConsent {
			check.Pending = append(check.Pending, st)
		}
	}
	check.NeedsConsent = len(check.Pending) > 0
	return check, nil
}

// Submit records the user's acceptance of every active document along with
// their cookie preferences. Nothing is written unless everything is, and on
// error the caller must keep gating the user.
func (s *ConsentService) Submit(ctx context.Context, req SubmitConsentRequest) (*ConsentResult, error) {
	prefs, err := ResolvePreferences(req.Mode, req.Analytics, req.Marketing)
	if err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, apperrors.Unauthorized("Sign in to record consent")
	}

	docs, err := s.legal.ActiveDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var ua *string
	if req.UserAgent != "" {
		ua = &req.UserAgent
	}
	params := make([]model.CreateConsentParams, len(docs))
	for i, d := range docs {
		params[i] = model.CreateConsentParams{
			UserID:            req.UserID,
			DocumentID:        d.ID,
			DocumentType:      d.DocumentType,
			DocumentVersion:   d.Version,
			CookiePreferences: prefs,
			UserAgent:         ua,
		}
	}

	records := []model.ConsentRecord{}
	if len(params) > 0 {
		records, err = s.repo.RecordConsents(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("record consents: %w", err)
		}
	}

	metrics.RecordConsents(string(req.Mode), len(records))
	audit.Log(ctx, audit.Event{
		Type:      audit.EventConsentRecorded,
		UserID:    req.UserID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Details: map[string]interface{}{
			"mode":      string(req.Mode),
			"documents": len(records),
			"analytics": prefs.Analytics,
			"marketing": prefs.Marketing,
		},
	})

	return &ConsentResult{
		State:   cookieconsent.NewState(prefs, s.now()),
		Records: records,
	}, nil
}

func (s *ConsentService) List(ctx context.Context, userID *string, limit, offset int) ([]model.ConsentRecord, int, error) {
	records, err := s.repo.FindAll(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list consents: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count consents: %w", err)
	}
	return records, total, nil
}

func (s *ConsentService) AccessLogs(ctx context.Context, userID string, limit int) ([]model.AccessLog, error) {
	logs, err := s.repo.FindAccessLogs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}

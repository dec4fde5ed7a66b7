package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vertexautomation/site-server/internal/repository"
)

type Stats struct {
	Content     map[string]int `json:"content"`
	Users       int            `json:"users"`
	Consents    int            `json:"consents"`
	ActiveCodes int            `json:"activeCodes"`
	Legal       struct {
		Documents int `json:"documents"`
		Active    int `json:"active"`
	} `json:"legal"`
}

// AdminService backs the dashboard overview.
type AdminService struct {
	contentRepo repository.ContentRepository
	userRepo    repository.UserRepository
	consentRepo repository.ConsentRepository
	codeRepo    repository.AccessCodeRepository
	legalRepo   repository.LegalDocumentRepository
}

func NewAdminService(
	contentRepo repository.ContentRepository,
	userRepo repository.UserRepository,
	consentRepo repository.ConsentRepository,
	codeRepo repository.AccessCodeRepository,
	legalRepo repository.LegalDocumentRepository,
) *AdminService {
	return &AdminService{
		contentRepo: contentRepo,
		userRepo:    userRepo,
		consentRepo: consentRepo,
		codeRepo:    codeRepo,
		legalRepo:   legalRepo,
	}
}

func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Content, err = s.contentRepo.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Users, err = s.userRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Consents, err = s.consentRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveCodes, err = s.codeRepo.CountValid(gctx)
		return err
	})
	g.Go(func() error {
		docs, err := s.legalRepo.FindAll(gctx, nil)
		if err != nil {
			return err
		}
		stats.Legal.Documents = len(docs)
		for _, d := range docs {
			if d.IsActive {
				stats.Legal.Active++
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

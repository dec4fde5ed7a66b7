package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/vertexautomation/site-server/internal/cache"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/util"
)

const contentCachePrefix = "content:"

// AboutPage is the company page: credentials, clients and what they say.
type AboutPage struct {
	Certifications []model.Certification `json:"certifications"`
	ClientLogos    []model.ClientLogo    `json:"clientLogos"`
	Testimonials   []model.Testimonial   `json:"testimonials"`
	Settings       map[string]string     `json:"settings"`
}

// ContentService serves the marketing pages and their admin editing. Public
// reads go through the cache; every admin write drops it.
type ContentService struct {
	repo     repository.ContentRepository
	settings repository.SettingsRepository
	cache    *cache.Cache
}

func NewContentService(repo repository.ContentRepository, settings repository.SettingsRepository, c *cache.Cache) *ContentService {
	return &ContentService{repo: repo, settings: settings, cache: c}
}

func (s *ContentService) invalidate() {
	s.cache.DeletePrefix(contentCachePrefix)
}

// Home fetches every section of the landing page concurrently.
func (s *ContentService) Home(ctx context.Context) (*model.HomePage, error) {
	return cache.Load(ctx, s.cache, contentCachePrefix+"home", func(ctx context.Context) (*model.HomePage, error) {
		page := &model.HomePage{}
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() (err error) {
			page.Services, err = s.repo.ListServices(gctx, true)
			return err
		})
		g.Go(func() (err error) {
			page.CaseStudies, err = s.repo.ListCaseStudies(gctx, true, true)
			return err
		})
		g.Go(func() (err error) {
			page.Testimonials, err = s.repo.ListTestimonials(gctx, true)
			return err
		})
		g.Go(func() (err error) {
			page.Certifications, err = s.repo.ListCertifications(gctx)
			return err
		})
		g.Go(func() (err error) {
			page.ClientLogos, err = s.repo.ListClientLogos(gctx)
			return err
		})
		g.Go(func() (err error) {
			page.Settings, err = s.settingsMap(gctx)
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("load home page: %w", err)
		}
		return page, nil
	})
}

func (s *ContentService) About(ctx context.Context) (*AboutPage, error) {
	return cache.Load(ctx, s.cache, contentCachePrefix+"about", func(ctx context.Context) (*AboutPage, error) {
		page := &AboutPage{}
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() (err error) {
			page.Certifications, err = s.repo.ListCertifications(gctx)
			return err
		})
		g.Go(func() (err error) {
			page.ClientLogos, err = s.repo.ListClientLogos(gctx)
			return err
		})
		g.Go(func() (err error) {
			page.Testimonials, err = s.repo.ListTestimonials(gctx, true)
			return err
		})
		g.Go(func() (err error) {
			page.Settings, err = s.settingsMap(gctx)
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("load about page: %w", err)
		}
		return page, nil
	})
}

func (s *ContentService) PublishedServices(ctx context.Context) ([]model.Service, error) {
	return cache.Load(ctx, s.cache, contentCachePrefix+"services", func(ctx context.Context) ([]model.Service, error) {
		return s.repo.ListServices(ctx, true)
	})
}

func (s *ContentService) ServiceBySlug(ctx context.Context, slug string) (*model.Service, error) {
	svc, err := cache.Load(ctx, s.cache, contentCachePrefix+"service:"+slug, func(ctx context.Context) (*model.Service, error) {
		return s.repo.FindServiceBySlug(ctx, slug)
	})
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if svc == nil || !svc.IsPublished {
		return nil, apperrors.NotFound("Service")
	}
	return svc, nil
}

func (s *ContentService) PublishedCaseStudies(ctx context.Context, featuredOnly bool) ([]model.CaseStudy, error) {
	key := contentCachePrefix + "case-studies"
	if featuredOnly {
		key += ":featured"
	}
	return cache.Load(ctx, s.cache, key, func(ctx context.Context) ([]model.CaseStudy, error) {
		return s.repo.ListCaseStudies(ctx, true, featuredOnly)
	})
}

func (s *ContentService) CaseStudyBySlug(ctx context.Context, slug string) (*model.CaseStudy, error) {
	cs, err := cache.Load(ctx, s.cache, contentCachePrefix+"case-study:"+slug, func(ctx context.Context) (*model.CaseStudy, error) {
		return s.repo.FindCaseStudyBySlug(ctx, slug)
	})
	if err != nil {
		return nil, fmt.Errorf("find case study: %w", err)
	}
	if cs == nil || !cs.IsPublished {
		return nil, apperrors.NotFound("Case study")
	}
	return cs, nil
}

func (s *ContentService) Settings(ctx context.Context) (map[string]string, error) {
	return cache.Load(ctx, s.cache, contentCachePrefix+"settings", s.settingsMap)
}

func (s *ContentService) settingsMap(ctx context.Context) (map[string]string, error) {
	rows, err := s.settings.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Admin

func (s *ContentService) ListServices(ctx context.Context) ([]model.Service, error) {
	return s.repo.ListServices(ctx, false)
}

func (s *ContentService) CreateService(ctx context.Context, p model.ServiceParams) (*model.Service, error) {
	if err := validateService(&p); err != nil {
		return nil, err
	}
	svc, err := s.repo.CreateService(ctx, p)
	if err != nil {
		return nil, writeError("Service", err)
	}
	s.invalidate()
	return svc, nil
}

func (s *ContentService) UpdateService(ctx context.Context, id string, p model.ServiceParams) (*model.Service, error) {
	if err := validateService(&p); err != nil {
		return nil, err
	}
	svc, err := s.repo.UpdateService(ctx, id, p)
	if err != nil {
		return nil, writeError("Service", err)
	}
	if svc == nil {
		return nil, apperrors.NotFound("Service")
	}
	s.invalidate()
	return svc, nil
}

func (s *ContentService) DeleteService(ctx context.Context, id string) error {
	return s.deleted("Service", func() (bool, error) { return s.repo.DeleteService(ctx, id) })
}

func (s *ContentService) ListCaseStudies(ctx context.Context) ([]model.CaseStudy, error) {
	return s.repo.ListCaseStudies(ctx, false, false)
}

func (s *ContentService) CreateCaseStudy(ctx context.Context, p model.CaseStudyParams) (*model.CaseStudy, error) {
	if err := validateCaseStudy(&p); err != nil {
		return nil, err
	}
	cs, err := s.repo.CreateCaseStudy(ctx, p)
	if err != nil {
		return nil, writeError("Case study", err)
	}
	s.invalidate()
	return cs, nil
}

func (s *ContentService) UpdateCaseStudy(ctx context.Context, id string, p model.CaseStudyParams) (*model.CaseStudy, error) {
	if err := validateCaseStudy(&p); err != nil {
		return nil, err
	}
	cs, err := s.repo.UpdateCaseStudy(ctx, id, p)
	if err != nil {
		return nil, writeError("Case study", err)
	}
	if cs == nil {
		return nil, apperrors.NotFound("Case study")
	}
	s.invalidate()
	return cs, nil
}

func (s *ContentService) DeleteCaseStudy(ctx context.Context, id string) error {
	return s.deleted("Case study", func() (bool, error) { return s.repo.DeleteCaseStudy(ctx, id) })
}

func (s *ContentService) ListTestimonials(ctx context.Context) ([]model.Testimonial, error) {
	return s.repo.ListTestimonials(ctx, false)
}

func (s *ContentService) CreateTestimonial(ctx context.Context, p model.TestimonialParams) (*model.Testimonial, error) {
	if err := validateTestimonial(&p); err != nil {
		return nil, err
	}
	t, err := s.repo.CreateTestimonial(ctx, p)
	if err != nil {
		return nil, writeError("Testimonial", err)
	}
	s.invalidate()
	return t, nil
}

func (s *ContentService) UpdateTestimonial(ctx context.Context, id string, p model.TestimonialParams) (*model.Testimonial, error) {
	if err := validateTestimonial(&p); err != nil {
		return nil, err
	}
	t, err := s.repo.UpdateTestimonial(ctx, id, p)
	if err != nil {
		return nil, writeError("Testimonial", err)
	}
	if t == nil {
		return nil, apperrors.NotFound("Testimonial")
	}
	s.invalidate()
	return t, nil
}

func (s *ContentService) DeleteTestimonial(ctx context.Context, id string) error {
	return s.deleted("Testimonial", func() (bool, error) { return s.repo.DeleteTestimonial(ctx, id) })
}

func (s *ContentService) ListCertifications(ctx context.Context) ([]model.Certification, error) {
	return s.repo.ListCertifications(ctx)
}

func (s *ContentService) CreateCertification(ctx context.Context, p model.CertificationParams) (*model.Certification, error) {
	if err := validateCertification(&p); err != nil {
		return nil, err
	}
	c, err := s.repo.CreateCertification(ctx, p)
	if err != nil {
		return nil, writeError("Certification", err)
	}
	s.invalidate()
	return c, nil
}

func (s *ContentService) UpdateCertification(ctx context.Context, id string, p model.CertificationParams) (*model.Certification, error) {
	if err := validateCertification(&p); err != nil {
		return nil, err
	}
	c, err := s.repo.UpdateCertification(ctx, id, p)
	if err != nil {
		return nil, writeError("Certification", err)
	}
	if c == nil {
		return nil, apperrors.NotFound("Certification")
	}
	s.invalidate()
	return c, nil
}

func (s *ContentService) DeleteCertification(ctx context.Context, id string) error {
	return s.deleted("Certification", func() (bool, error) { return s.repo.DeleteCertification(ctx, id) })
}

func (s *ContentService) ListClientLogos(ctx context.Context) ([]model.ClientLogo, error) {
	return s.repo.ListClientLogos(ctx)
}

func (s *ContentService) CreateClientLogo(ctx context.Context, p model.ClientLogoParams) (*model.ClientLogo, error) {
	if err := validateClientLogo(&p); err != nil {
		return nil, err
	}
	l, err := s.repo.CreateClientLogo(ctx, p)
	if err != nil {
		return nil, writeError("Client logo", err)
	}
	s.invalidate()
	return l, nil
}

func (s *ContentService) UpdateClientLogo(ctx context.Context, id string, p model.ClientLogoParams) (*model.ClientLogo, error) {
	if err := validateClientLogo(&p); err != nil {
		return nil, err
	}
	l, err := s.repo.UpdateClientLogo(ctx, id, p)
	if err != nil {
		return nil, writeError("Client logo", err)
	}
	if l == nil {
		return nil, apperrors.NotFound("Client logo")
	}
	s.invalidate()
	return l, nil
}

func (s *ContentService) DeleteClientLogo(ctx context.Context, id string) error {
	return s.deleted("Client logo", func() (bool, error) { return s.repo.DeleteClientLogo(ctx, id) })
}

func (s *ContentService) AllSettings(ctx context.Context) ([]model.SiteSetting, error) {
	return s.settings.FindAll(ctx)
}

func (s *ContentService) PutSetting(ctx context.Context, key, value string) (*model.SiteSetting, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return nil, apperrors.InvalidInput("key", "must be 1 to 100 characters")
	}
	setting, err := s.settings.Upsert(ctx, key, value)
	if err != nil {
		return nil, fmt.Errorf("upsert setting: %w", err)
	}
	s.invalidate()
	return setting, nil
}

func (s *ContentService) DeleteSetting(ctx context.Context, key string) error {
	return s.deleted("Setting", func() (bool, error) { return s.settings.Delete(ctx, key) })
}

func (s *ContentService) deleted(resource string, fn func() (bool, error)) error {
	ok, err := fn()
	if err != nil {
		return fmt.Errorf("delete %s: %w", strings.ToLower(resource), err)
	}
	if !ok {
		return apperrors.NotFound(resource)
	}
	s.invalidate()
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// writeError turns a unique violation into a conflict the admin can act on.
func writeError(resource string, err error) error {
	if isUniqueViolation(err) {
		return apperrors.AlreadyExists(resource + " with this slug")
	}
	return fmt.Errorf("write %s: %w", strings.ToLower(resource), err)
}

func requireText(field string, v *string, max int) error {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		return apperrors.MissingRequired(field)
	}
	if len(*v) > max {
		return apperrors.InvalidInput(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

func validateService(p *model.ServiceParams) error {
	if !util.IsValidSlug(p.Slug) {
		return apperrors.InvalidInput("slug", "use lowercase letters, digits and dashes")
	}
	if err := requireText("title", &p.Title, 200); err != nil {
		return err
	}
	return requireText("summary", &p.Summary, 1000)
}

func validateCaseStudy(p *model.CaseStudyParams) error {
	if !util.IsValidSlug(p.Slug) {
		return apperrors.InvalidInput("slug", "use lowercase letters, digits and dashes")
	}
	if err := requireText("title", &p.Title, 200); err != nil {
		return err
	}
	if err := requireText("clientName", &p.ClientName, 200); err != nil {
		return err
	}
	techs := make([]string, 0, len(p.Technologies))
	for _, t := range p.Technologies {
		if t = strings.TrimSpace(t); t != "" {
			techs = append(techs, t)
		}
	}
	p.Technologies = techs
	return nil
}

func validateTestimonial(p *model.TestimonialParams) error {
	if err := requireText("authorName", &p.AuthorName, 200); err != nil {
		return err
	}
	if err := requireText("quote", &p.Quote, 2000); err != nil {
		return err
	}
	if p.Rating != nil && (*p.Rating < 1 || *p.Rating > 5) {
		return apperrors.InvalidInput("rating", "must be between 1 and 5")
	}
	return nil
}

func validateCertification(p *model.CertificationParams) error {
	if err := requireText("name", &p.Name, 200); err != nil {
		return err
	}
	return requireText("issuer", &p.Issuer, 200)
}

func validateClientLogo(p *model.ClientLogoParams) error {
	if err := requireText("clientName", &p.ClientName, 200); err != nil {
		return err
	}
	if err := requireText("imageKey", &p.ImageKey, 500); err != nil {
		return err
	}
	return nil
}

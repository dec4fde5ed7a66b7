package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vertexautomation/site-server/internal/model"
)

// ContentRepository covers the marketing content tables. List* with
// publishedOnly=true is what public pages read.
type ContentRepository interface {
	ListServices(ctx context.Context, publishedOnly bool) ([]model.Service, error)
	FindServiceBySlug(ctx context.Context, slug string) (*model.Service, error)
	CreateService(ctx context.Context, params model.ServiceParams) (*model.Service, error)
	UpdateService(ctx context.Context, id string, params model.ServiceParams) (*model.Service, error)
	DeleteService(ctx context.Context, id string) (bool, error)

	ListCaseStudies(ctx context.Context, publishedOnly, featuredOnly bool) ([]model.CaseStudy, error)
	FindCaseStudyBySlug(ctx context.Context, slug string) (*model.CaseStudy, error)
	CreateCaseStudy(ctx context.Context, params model.CaseStudyParams) (*model.CaseStudy, error)
	UpdateCaseStudy(ctx context.Context, id string, params model.CaseStudyParams) (*model.CaseStudy, error)
	DeleteCaseStudy(ctx context.Context, id string) (bool, error)

	ListTestimonials(ctx context.Context, publishedOnly bool) ([]model.Testimonial, error)
	CreateTestimonial(ctx context.Context, params model.TestimonialParams) (*model.Testimonial, error)
	UpdateTestimonial(ctx context.Context, id string, params model.TestimonialParams) (*model.Testimonial, error)
	DeleteTestimonial(ctx context.Context, id string) (bool, error)

	ListCertifications(ctx context.Context) ([]model.Certification, error)
	CreateCertification(ctx context.Context, params model.CertificationParams) (*model.Certification, error)
	UpdateCertification(ctx context.Context, id string, params model.CertificationParams) (*model.Certification, error)
	DeleteCertification(ctx context.Context, id string) (bool, error)

	ListClientLogos(ctx context.Context) ([]model.ClientLogo, error)
	CreateClientLogo(ctx context.Context, params model.ClientLogoParams) (*model.ClientLogo, error)
	UpdateClientLogo(ctx context.Context, id string, params model.ClientLogoParams) (*model.ClientLogo, error)
	DeleteClientLogo(ctx context.Context, id string) (bool, error)

	CountAll(ctx context.Context) (map[string]int, error)
}

type contentRepo struct {
	db *sqlx.DB
}

func NewContentRepository(db *sqlx.DB) ContentRepository {
	return &contentRepo{db: db}
}

func (r *contentRepo) ListServices(ctx context.Context, publishedOnly bool) ([]model.Service, error) {
	services := []model.Service{}
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services
		WHERE ($1 = false OR is_published = true)
		ORDER BY sort_order, title
	`, publishedOnly)
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *contentRepo) FindServiceBySlug(ctx context.Context, slug string) (*model.Service, error) {
	var svc model.Service
	err := r.db.GetContext(ctx, &svc, `
		SELECT * FROM services WHERE slug = $1 AND is_published = true
	`, slug)
	return HandleNotFound(&svc, err)
}

func (r *contentRepo) CreateService(ctx context.Context, p model.ServiceParams) (*model.Service, error) {
	var svc model.Service
	err := r.db.GetContext(ctx, &svc, `
		INSERT INTO services (slug, title, summary, body, icon, sort_order, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, p.Slug, p.Title, p.Summary, p.Body, p.Icon, p.SortOrder, p.IsPublished)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *contentRepo) UpdateService(ctx context.Context, id string, p model.ServiceParams) (*model.Service, error) {
	var svc model.Service
	err := r.db.GetContext(ctx, &svc, `
		UPDATE services SET
			slug = $2, title = $3, summary = $4, body = $5, icon = $6,
			sort_order = $7, is_published = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, p.Slug, p.Title, p.Summary, p.Body, p.Icon, p.SortOrder, p.IsPublished)
	return HandleNotFound(&svc, err)
}

func (r *contentRepo) DeleteService(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id))
}

func (r *contentRepo) ListCaseStudies(ctx context.Context, publishedOnly, featuredOnly bool) ([]model.CaseStudy, error) {
	studies := []model.CaseStudy{}
	err := r.db.SelectContext(ctx, &studies, `
		SELECT * FROM case_studies
		WHERE ($1 = false OR is_published = true)
		AND ($2 = false OR is_featured = true)
		ORDER BY created_at DESC
	`, publishedOnly, featuredOnly)
	if err != nil {
		return nil, err
	}
	return studies, nil
}

func (r *contentRepo) FindCaseStudyBySlug(ctx context.Context, slug string) (*model.CaseStudy, error) {
	var cs model.CaseStudy
	err := r.db.GetContext(ctx, &cs, `
		SELECT * FROM case_studies WHERE slug = $1 AND is_published = true
	`, slug)
	return HandleNotFound(&cs, err)
}

func (r *contentRepo) CreateCaseStudy(ctx context.Context, p model.CaseStudyParams) (*model.CaseStudy, error) {
	var cs model.CaseStudy
	err := r.db.GetContext(ctx, &cs, `
		INSERT INTO case_studies (slug, title, client_name, industry, challenge, solution, results,
			technologies, image_key, is_featured, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING *
	`, p.Slug, p.Title, p.ClientName, p.Industry, p.Challenge, p.Solution, p.Results,
		pq.StringArray(p.Technologies), p.ImageKey, p.IsFeatured, p.IsPublished)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (r *contentRepo) UpdateCaseStudy(ctx context.Context, id string, p model.CaseStudyParams) (*model.CaseStudy, error) {
	var cs model.CaseStudy
	err := r.db.GetContext(ctx, &cs, `
		UPDATE case_studies SET
			slug = $2, title = $3, client_name = $4, industry = $5, challenge = $6,
			solution = $7, results = $8, technologies = $9, image_key = $10,
			is_featured = $11, is_published = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, p.Slug, p.Title, p.ClientName, p.Industry, p.Challenge, p.Solution, p.Results,
		pq.StringArray(p.Technologies), p.ImageKey, p.IsFeatured, p.IsPublished)
	return HandleNotFound(&cs, err)
}

func (r *contentRepo) DeleteCaseStudy(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM case_studies WHERE id = $1`, id))
}

func (r *contentRepo) ListTestimonials(ctx context.Context, publishedOnly bool) ([]model.Testimonial, error) {
	items := []model.Testimonial{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM testimonials
		WHERE ($1 = false OR is_published = true)
		ORDER BY created_at DESC
	`, publishedOnly)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) CreateTestimonial(ctx context.Context, p model.TestimonialParams) (*model.Testimonial, error) {
	var t model.Testimonial
	err := r.db.GetContext(ctx, &t, `
		INSERT INTO testimonials (author_name, author_title, company, quote, rating, is_published)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, p.AuthorName, p.AuthorTitle, p.Company, p.Quote, p.Rating, p.IsPublished)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *contentRepo) UpdateTestimonial(ctx context.Context, id string, p model.TestimonialParams) (*model.Testimonial, error) {
	var t model.Testimonial
	err := r.db.GetContext(ctx, &t, `
		UPDATE testimonials SET
			author_name = $2, author_title = $3, company = $4, quote = $5,
			rating = $6, is_published = $7
		WHERE id = $1
		RETURNING *
	`, id, p.AuthorName, p.AuthorTitle, p.Company, p.Quote, p.Rating, p.IsPublished)
	return HandleNotFound(&t, err)
}

func (r *contentRepo) DeleteTestimonial(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = $1`, id))
}

func (r *contentRepo) ListCertifications(ctx context.Context) ([]model.Certification, error) {
	items := []model.Certification{}
	err := r.db.SelectContext(ctx, &items, `SELECT * FROM certifications ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) CreateCertification(ctx context.Context, p model.CertificationParams) (*model.Certification, error) {
	var c model.Certification
	err := r.db.GetContext(ctx, &c, `
		INSERT INTO certifications (name, issuer, description, image_key, issued_at, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, p.Name, p.Issuer, p.Description, p.ImageKey, p.IssuedAt, p.SortOrder)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contentRepo) UpdateCertification(ctx context.Context, id string, p model.CertificationParams) (*model.Certification, error) {
	var c model.Certification
	err := r.db.GetContext(ctx, &c, `
		UPDATE certifications SET
			name = $2, issuer = $3, description = $4, image_key = $5,
			issued_at = $6, sort_order = $7
		WHERE id = $1
		RETURNING *
	`, id, p.Name, p.Issuer, p.Description, p.ImageKey, p.IssuedAt, p.SortOrder)
	return HandleNotFound(&c, err)
}

func (r *contentRepo) DeleteCertification(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM certifications WHERE id = $1`, id))
}

func (r *contentRepo) ListClientLogos(ctx context.Context) ([]model.ClientLogo, error) {
	items := []model.ClientLogo{}
	err := r.db.SelectContext(ctx, &items, `SELECT * FROM client_logos ORDER BY sort_order, client_name`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) CreateClientLogo(ctx context.Context, p model.ClientLogoParams) (*model.ClientLogo, error) {
	var l model.ClientLogo
	err := r.db.GetContext(ctx, &l, `
		INSERT INTO client_logos (client_name, image_key, website_url, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, p.ClientName, p.ImageKey, p.WebsiteURL, p.SortOrder)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *contentRepo) UpdateClientLogo(ctx context.Context, id string, p model.ClientLogoParams) (*model.ClientLogo, error) {
	var l model.ClientLogo
	err := r.db.GetContext(ctx, &l, `
		UPDATE client_logos SET
			client_name = $2, image_key = $3, website_url = $4, sort_order = $5
		WHERE id = $1
		RETURNING *
	`, id, p.ClientName, p.ImageKey, p.WebsiteURL, p.SortOrder)
	return HandleNotFound(&l, err)
}

func (r *contentRepo) DeleteClientLogo(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM client_logos WHERE id = $1`, id))
}

// CountAll returns row counts for the admin dashboard.
func (r *contentRepo) CountAll(ctx context.Context) (map[string]int, error) {
	var row struct {
		Services       int `db:"services"`
		CaseStudies    int `db:"case_studies"`
		Testimonials   int `db:"testimonials"`
		Certifications int `db:"certifications"`
		ClientLogos    int `db:"client_logos"`
		UnreadMessages int `db:"unread_messages"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT
			(SELECT COUNT(*) FROM services) AS services,
			(SELECT COUNT(*) FROM case_studies) AS case_studies,
			(SELECT COUNT(*) FROM testimonials) AS testimonials,
			(SELECT COUNT(*) FROM certifications) AS certifications,
			(SELECT COUNT(*) FROM client_logos) AS client_logos,
			(SELECT COUNT(*) FROM contact_messages WHERE is_read = false) AS unread_messages
	`)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		"services":       row.Services,
		"caseStudies":    row.CaseStudies,
		"testimonials":   row.Testimonials,
		"certifications": row.Certifications,
		"clientLogos":    row.ClientLogos,
		"unreadMessages": row.UnreadMessages,
	}, nil
}

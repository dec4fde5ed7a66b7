package model

import (
	"time"

	"github.com/lib/pq"
)

type Service struct {
	ID          string    `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Title       string    `db:"title" json:"title"`
	Summary     string    `db:"summary" json:"summary"`
	Body        string    `db:"body" json:"body"`
	Icon        *string   `db:"icon" json:"icon,omitempty"`
	SortOrder   int       `db:"sort_order" json:"sortOrder"`
	IsPublished bool      `db:"is_published" json:"isPublished"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type ServiceParams struct {
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Body        string  `json:"body"`
	Icon        *string `json:"icon"`
	SortOrder   int     `json:"sortOrder"`
	IsPublished bool    `json:"isPublished"`
}

type CaseStudy struct {
	ID           string         `db:"id" json:"id"`
	Slug         string         `db:"slug" json:"slug"`
	Title        string         `db:"title" json:"title"`
	ClientName   string         `db:"client_name" json:"clientName"`
	Industry     *string        `db:"industry" json:"industry,omitempty"`
	Challenge    string         `db:"challenge" json:"challenge"`
	Solution     string         `db:"solution" json:"solution"`
	Results      string         `db:"results" json:"results"`
	Technologies pq.StringArray `db:"technologies" json:"technologies"`
	ImageKey     *string        `db:"image_key" json:"imageKey,omitempty"`
	IsFeatured   bool           `db:"is_featured" json:"isFeatured"`
	IsPublished  bool           `db:"is_published" json:"isPublished"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

type CaseStudyParams struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	ClientName   string   `json:"clientName"`
	Industry     *string  `json:"industry"`
	Challenge    string   `json:"challenge"`
	Solution     string   `json:"solution"`
	Results      string   `json:"results"`
	Technologies []string `json:"technologies"`
	ImageKey     *string  `json:"imageKey"`
	IsFeatured   bool     `json:"isFeatured"`
	IsPublished  bool     `json:"isPublished"`
}

type Testimonial struct {
	ID          string    `db:"id" json:"id"`
	AuthorName  string    `db:"author_name" json:"authorName"`
	AuthorTitle *string   `db:"author_title" json:"authorTitle,omitempty"`
	Company     *string   `db:"company" json:"company,omitempty"`
	Quote       string    `db:"quote" json:"quote"`
	Rating      *int      `db:"rating" json:"rating,omitempty"`
	IsPublished bool      `db:"is_published" json:"isPublished"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type TestimonialParams struct {
	AuthorName  string  `json:"authorName"`
	AuthorTitle *string `json:"authorTitle"`
	Company     *string `json:"company"`
	Quote       string  `json:"quote"`
	Rating      *int    `json:"rating"`
	IsPublished bool    `json:"isPublished"`
}

type Certification struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Issuer      string     `db:"issuer" json:"issuer"`
	Description *string    `db:"description" json:"description,omitempty"`
	ImageKey    *string    `db:"image_key" json:"imageKey,omitempty"`
	IssuedAt    *time.Time `db:"issued_at" json:"issuedAt,omitempty"`
	SortOrder   int        `db:"sort_order" json:"sortOrder"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

type CertificationParams struct {
	Name        string     `json:"name"`
	Issuer      string     `json:"issuer"`
	Description *string    `json:"description"`
	ImageKey    *string    `json:"imageKey"`
	IssuedAt    *time.Time `json:"issuedAt"`
	SortOrder   int        `json:"sortOrder"`
}

type ClientLogo struct {
	ID         string    `db:"id" json:"id"`
	ClientName string    `db:"client_name" json:"clientName"`
	ImageKey   string    `db:"image_key" json:"imageKey"`
	WebsiteURL *string   `db:"website_url" json:"websiteUrl,omitempty"`
	SortOrder  int       `db:"sort_order" json:"sortOrder"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type ClientLogoParams struct {
	ClientName string  `json:"clientName"`
	ImageKey   string  `json:"imageKey"`
	WebsiteURL *string `json:"websiteUrl"`
	SortOrder  int     `json:"sortOrder"`
}

type SiteSetting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type ContactMessage struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Company   *string   `db:"company" json:"company,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateContactMessageParams struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Company *string `json:"company"`
	Phone   *string `json:"phone"`
	Message string  `json:"message"`
}

// HomePage aggregates everything the landing page renders.
type HomePage struct {
	Services       []Service         `json:"services"`
	CaseStudies    []CaseStudy       `json:"caseStudies"`
	Testimonials   []Testimonial     `json:"testimonials"`
	Certifications []Certification   `json:"certifications"`
	ClientLogos    []ClientLogo      `json:"clientLogos"`
	Settings       map[string]string `json:"settings"`
}

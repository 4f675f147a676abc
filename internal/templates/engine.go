// Package templates renders deterministic outreach emails from a prospect and
// an industry category. Rendering never fails.
package templates

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/freshstart/outreach/internal/industry"
	"github.com/freshstart/outreach/internal/prospect"
)

const (
	genericContact  = "Facilities Manager"
	genericCompany  = "your organization"
	genericLocation = "your area"
	maxServices     = 4
)

// Company is the sender's identity as it appears in rendered emails.
type Company struct {
	Name        string
	Phone       string
	Website     string
	ServiceArea string
	Years       int
}

// Email is a rendered subject and body.
type Email struct {
	Subject string
	Body    string
}

// Engine renders emails from a catalog.
type Engine struct {
	company Company
	catalog Catalog
}

// NewEngine returns an engine over catalog, or over DefaultCatalog when
// catalog is nil. Categories missing from catalog use the Default entry.
func NewEngine(company Company, catalog Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if company.Name == "" {
		company.Name = "Fresh Start Cleaning Co."
	}
	if company.ServiceArea == "" {
		company.ServiceArea = "Louisiana"
	}
	if company.Years <= 0 {
		company.Years = 10
	}
	return &Engine{company: company, catalog: catalog}
}

// Company returns the sender identity used in signatures.
func (e *Engine) Company() Company {
	return e.company
}

// Content returns the catalog entry for cat.
func (e *Engine) Content(cat industry.Category) Content {
	if c, ok := e.catalog[cat]; ok {
		return c
	}
	if c, ok := e.catalog[industry.Default]; ok {
		return c
	}
	return DefaultCatalog()[industry.Default]
}

// Subject renders only the subject line.
func (e *Engine) Subject(p prospect.Prospect, cat industry.Category) string {
	subject := e.fill(e.Content(cat).Subject, p)
	if strings.TrimSpace(subject) == "" {
		subject = e.fill(defaultSubject, p)
	}
	return subject
}

// Render builds the full email for p in category cat.
func (e *Engine) Render(p prospect.Prospect, cat industry.Category) Email {
	content := e.Content(cat)
	company := orDefault(p.CompanyName, genericCompany)

	var services strings.Builder
	list := content.Services
	if len(list) > maxServices {
		list = list[:maxServices]
	}
	for _, s := range list {
		services.WriteString("• ")
		services.WriteString(s)
		services.WriteString("\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", orDefault(p.ContactName, genericContact))
	if opening := strings.TrimSpace(e.fill(content.Opening, p)); opening != "" {
		fmt.Fprintf(&b, "%s\n\n", opening)
	}
	fmt.Fprintf(&b, "%s specializes in professional cleaning for businesses like %s in %s. %s\n\n",
		e.company.Name, company, orDefault(p.Location, genericLocation), sentence(content.Benefit))
	if services.Len() > 0 {
		fmt.Fprintf(&b, "Our services include:\n%s\n", services.String())
	}
	fmt.Fprintf(&b, "With over %d years of experience serving %s businesses, we're Licensed, Bonded, and Insured. "+
		"Our local team provides reliable, professional service tailored to your specific needs.\n\n",
		e.company.Years, e.company.ServiceArea)
	if action := strings.TrimSpace(e.fill(content.Action, p)); action != "" {
		fmt.Fprintf(&b, "%s\n\n", action)
	}
	b.WriteString(e.Signature())

	return Email{Subject: e.Subject(p, cat), Body: b.String()}
}

// Signature is the closing block appended to every email.
func (e *Engine) Signature() string {
	lines := []string{"Best regards,", e.company.Name}
	if e.company.Phone != "" {
		lines = append(lines, e.company.Phone)
	}
	if e.company.Website != "" {
		lines = append(lines, e.company.Website)
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) fill(pattern string, p prospect.Prospect) string {
	return strings.NewReplacer(
		"{company_name}", orDefault(p.CompanyName, genericCompany),
		"{contact_name}", orDefault(p.ContactName, genericContact),
		"{location}", orDefault(p.Location, genericLocation),
	).Replace(pattern)
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// sentence trims stray colons, capitalizes and terminates s.
func sentence(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ":"))
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	s = string(r)
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}

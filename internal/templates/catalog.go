package templates

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/freshstart/outreach/internal/industry"
)

// Content is the per-category copy used to assemble an email. Opening and
// Subject may reference {company_name}, {contact_name} and {location}.
type Content struct {
	Subject    string   `yaml:"subject"`
	Services   []string `yaml:"services"`
	Benefits   string   `yaml:"benefits"`
	PainPoints string   `yaml:"pain_points"`
	Opening    string   `yaml:"opening"`
	Benefit    string   `yaml:"benefit"`
	Action     string   `yaml:"action"`
}

// Catalog holds content for every category.
type Catalog map[industry.Category]Content

const defaultSubject = "Professional Cleaning Services for {company_name}"

// DefaultCatalog returns the built-in content.
func DefaultCatalog() Catalog {
	return Catalog{
		industry.Education: {
			Subject:    defaultSubject,
			Services:   []string{"Campus-wide cleaning", "Classroom sanitization", "Laboratory cleaning", "Student facility maintenance"},
			Benefits:   "clean learning environments impact student health and academic performance",
			PainPoints: "maintaining health standards across large campus facilities",
			Opening:    "Hope the academic year is going well at {company_name}.",
			Benefit:    "Campus cleanliness is essential for student health and learning success.",
			Action:     "Could we schedule a call to discuss your campus cleaning needs?",
		},
		industry.Construction: {
			Subject:    defaultSubject,
			Services:   []string{"Post-construction cleanup", "Site maintenance", "Debris removal", "Safety compliance cleaning"},
			Benefits:   "proper cleanup is crucial for project completion and safety standards",
			PainPoints: "meeting tight deadlines while maintaining quality cleanup standards",
			Opening:    "I've been following {company_name}'s impressive construction projects.",
			Benefit:    "Post-construction cleanup is crucial for project completion and safety.",
			Action:     "Would you be available to discuss your cleanup requirements?",
		},
		industry.Technology: {
			Subject:    defaultSubject,
			Services:   []string{"Office cleaning", "Server room maintenance", "Equipment area cleaning", "Workspace sanitization"},
			Benefits:   "clean workspaces directly impact productivity and professional image",
			PainPoints: "maintaining professional environments that support productivity",
			Opening:    "Hope your team at {company_name} is having a productive week.",
			Benefit:    "Clean workspaces directly impact productivity and team morale.",
			Action:     "Could we schedule a brief call about your office cleaning needs?",
		},
		industry.Manufacturing: {
			Subject:    defaultSubject,
			Services:   []string{"Industrial floor cleaning", "Equipment maintenance", "Safety compliance", "Hazardous material cleanup"},
			Benefits:   "industrial cleaning is essential for safety compliance and operational efficiency",
			PainPoints: "maintaining safety standards while keeping operations running",
			Opening:    "I understand {company_name} maintains high operational standards.",
			Benefit:    "Industrial cleaning is essential for safety and operational efficiency.",
			Action:     "Would you be interested in discussing your facility cleaning needs?",
		},
		industry.Residential: {
			Subject:    defaultSubject,
			Services:   []string{"House cleaning", "Deep cleaning", "Move-in/out cleaning", "Regular maintenance cleaning"},
			Benefits:   "professional cleaning saves time and ensures a healthy living environment",
			PainPoints: "maintaining a clean home while managing busy schedules",
			Opening:    "Hope you and your family are doing well.",
			Benefit:    "Professional cleaning saves time and ensures a healthy home environment.",
			Action:     "Would you be interested in learning about our residential cleaning services?",
		},
		industry.Office: {
			Subject:    defaultSubject,
			Services:   []string{"Daily janitorial", "Restroom maintenance", "Break room cleaning", "Trash removal"},
			Benefits:   "professional environments enhance employee satisfaction and client impressions",
			PainPoints: "maintaining professional appearance for employees and clients",
			Opening:    "Hope business is going well at {company_name}.",
			Benefit:    "Professional cleaning helps maintain your business image and employee satisfaction.",
			Action:     "Could we schedule a call to discuss your office cleaning needs?",
		},
		industry.Default: {
			Subject:    defaultSubject,
			Services:   []string{"Commercial cleaning", "Professional maintenance", "Customized solutions", "Reliable service"},
			Benefits:   "professional cleaning maintains business standards and creates positive impressions",
			PainPoints: "maintaining professional standards while focusing on core business",
			Opening:    "Hope business is going well at {company_name}.",
			Benefit:    "Professional cleaning helps maintain business standards.",
			Action:     "Could we schedule a brief call to discuss your cleaning needs?",
		},
	}
}

// LoadCatalog reads YAML overrides keyed by category name and merges them over
// the built-in content. Empty fields keep their defaults.
//
//	construction:
//	  subject: "Site cleanup for {company_name}"
//	  services: [Final cleans, Window washing]
func LoadCatalog(r io.Reader) (Catalog, error) {
	var raw map[string]Content
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("decode template catalog: %w", err)
	}

	cat := DefaultCatalog()
	for name, override := range raw {
		c, ok := industry.Parse(name)
		if !ok {
			return nil, fmt.Errorf("template catalog: unknown category %q", name)
		}
		cat[c] = merge(cat[c], override)
	}
	return cat, nil
}

func merge(base, over Content) Content {
	if over.Subject != "" {
		base.Subject = over.Subject
	}
	if len(over.Services) > 0 {
		base.Services = over.Services
	}
	if over.Benefits != "" {
		base.Benefits = over.Benefits
	}
	if over.PainPoints != "" {
		base.PainPoints = over.PainPoints
	}
	if over.Opening != "" {
		base.Opening = over.Opening
	}
	if over.Benefit != "" {
		base.Benefit = over.Benefit
	}
	if over.Action != "" {
		base.Action = over.Action
	}
	return base
}

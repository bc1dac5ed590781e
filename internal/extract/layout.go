package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

// Policy decides how candidate options from several marks collapse to a value.
type Policy string

const (
	// PolicyFirst takes the first matching mark in document order.
	PolicyFirst Policy = "first"
	// PolicyUnique resolves only when every matching mark agrees on one option.
	PolicyUnique Policy = "unique"
)

// Match decides which option a single mark's nearby text names.
type Match string

const (
	// MatchOptionOrder tests options in declared order against the whole nearby text.
	MatchOptionOrder Match = "option_order"
	// MatchNearestLine takes the option found in the closest nearby line.
	MatchNearestLine Match = "nearest_line"
)

// Band is an inclusive vertical range on a page. Page 0 means any page.
type Band struct {
	Page int     `yaml:"page"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

func (b Band) Contains(page int, y float64) bool {
	if b.Page != 0 && b.Page != page {
		return false
	}
	return y >= b.MinY && y <= b.MaxY
}

// CheckboxGroup describes a single-select group on the form.
type CheckboxGroup struct {
	Band          Band     `yaml:"band"`
	MinConfidence float64  `yaml:"min_confidence"`
	Options       []string `yaml:"options"`
	Policy        Policy   `yaml:"policy"`
	Match         Match    `yaml:"match"`
}

// LandlineRule locates the landline number next to its label.
type LandlineRule struct {
	Label string `yaml:"label"`
	// KnownRepairs maps whole OCR readings to their corrected value.
	KnownRepairs map[string]string `yaml:"known_repairs"`
	// LeadingDigitRepairs rewrites a confusable first digit.
	LeadingDigitRepairs map[string]string `yaml:"leading_digit_repairs"`
}

// JobTypeRule holds the phrases around the free-text job type.
type JobTypeRule struct {
	Intro          string   `yaml:"intro"`
	Connector      string   `yaml:"connector"`
	Label          string   `yaml:"label"`
	RejectPrefixes []string `yaml:"reject_prefixes"`
	RejectExact    []string `yaml:"reject_exact"`
}

// Layout is the per-form-family configuration table for direct extraction.
type Layout struct {
	Name             string        `yaml:"name"`
	NearbyRadius     float64       `yaml:"nearby_radius"`
	Landline         LandlineRule  `yaml:"landline"`
	JobType          JobTypeRule   `yaml:"job_type"`
	AccidentLocation CheckboxGroup `yaml:"accident_location"`
	HealthFund       CheckboxGroup `yaml:"health_fund"`
	// HealthFundHeader is the addressee line that sometimes names the fund.
	HealthFundHeader string `yaml:"health_fund_header"`
}

// AccidentLocationOptions are the printed choices of the accident-location group.
var AccidentLocationOptions = []string{"במפעל", "ת. דרכים בעבודה", "תאונה בדרך ללא רכב", "אחר"}

// HealthFunds are the four Israeli health funds.
var HealthFunds = []string{"כללית", "מכבי", "מאוחדת", "לאומית"}

// DefaultLayout is calibrated on the National Insurance work-injury form (BL/283)
// as analyzed by prebuilt-layout, coordinates in inches.
func DefaultLayout() Layout {
	return Layout{
		Name:         "nii-283",
		NearbyRadius: ocr.DefaultNearbyRadius,
		Landline: LandlineRule{
			Label:               "טלפון קווי",
			KnownRepairs:        map[string]string{"8975423541": "0975423541"},
			LeadingDigitRepairs: map[string]string{"8": "0"},
		},
		JobType: JobTypeRule{
			Intro:          "אני מבקש לקבל עזרה רפואית בגין פגיעה בעבודה שארעה לי",
			Connector:      "כאשר עבדתי ב",
			Label:          "סוג העבודה",
			RejectPrefixes: []string{"בתאריך"},
			RejectExact:    []string{"שעת הפגיעה"},
		},
		AccidentLocation: CheckboxGroup{
			Band:    Band{MinY: 6.0, MaxY: 6.8},
			Options: append([]string(nil), AccidentLocationOptions...),
			Policy:  PolicyFirst,
			Match:   MatchNearestLine,
		},
		HealthFund: CheckboxGroup{
			Band:          Band{MinY: 9.6, MaxY: 10.2},
			MinConfidence: 0.9,
			Options:       append([]string(nil), HealthFunds...),
			Policy:        PolicyUnique,
			Match:         MatchNearestLine,
		},
		HealthFundHeader: "אל קופ״ח/ביה״ח",
	}
}

// LoadLayout overlays the YAML file at path on DefaultLayout.
func LoadLayout(path string) (Layout, error) {
	l := DefaultLayout()
	if path == "" {
		return l, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	if err := yaml.Unmarshal(b, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// Validate rejects tables the extractor cannot apply.
func (l Layout) Validate() error {
	if l.NearbyRadius <= 0 {
		return fmt.Errorf("nearby_radius must be positive")
	}
	for name, g := range map[string]CheckboxGroup{
		"accident_location": l.AccidentLocation,
		"health_fund":       l.HealthFund,
	} {
		if g.Band.MinY > g.Band.MaxY {
			return fmt.Errorf("%s: band min_y > max_y", name)
		}
		if len(g.Options) == 0 {
			return fmt.Errorf("%s: no options", name)
		}
		if g.MinConfidence < 0 || g.MinConfidence > 1 {
			return fmt.Errorf("%s: min_confidence outside 0..1", name)
		}
		switch g.Policy {
		case PolicyFirst, PolicyUnique:
		default:
			return fmt.Errorf("%s: unknown policy %q", name, g.Policy)
		}
		switch g.Match {
		case MatchOptionOrder, MatchNearestLine:
		default:
			return fmt.Errorf("%s: unknown match %q", name, g.Match)
		}
	}
	if l.Landline.Label == "" || l.JobType.Label == "" {
		return fmt.Errorf("landline and job_type labels are required")
	}
	return nil
}

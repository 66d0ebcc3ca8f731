// Package opportunity turns extracted intake data into ranked automation
// opportunities and the numbers behind them: ROI scenarios, feasibility,
// process bottlenecks, pain score and a 90-day roadmap. Every function here
// is a pure function of its inputs.
package opportunity

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Boost adds Bonus to a template's match score when the named extracted
// field contains the given text.
type Boost struct {
	Field    string `yaml:"field" json:"field"`
	Contains string `yaml:"contains" json:"contains"`
	Bonus    int    `yaml:"bonus" json:"bonus"`
}

// Template is a hand-authored candidate automation.
type Template struct {
	Name                string   `yaml:"name" json:"name"`
	Slug                string   `yaml:"slug" json:"slug"`
	Category            string   `yaml:"category" json:"category"`
	Description         string   `yaml:"description" json:"description"`
	Problem             string   `yaml:"problem" json:"problem"`
	Keywords            []string `yaml:"keywords" json:"keywords"`
	Industries          []string `yaml:"industries" json:"industries"`
	Boosts              []Boost  `yaml:"boosts" json:"boosts,omitempty"`
	Impact              int      `yaml:"impact" json:"impact"`
	Effort              int      `yaml:"effort" json:"effort"`
	HoursSavedWeekly    float64  `yaml:"hours_saved_weekly" json:"hoursSavedWeekly"`
	Cost                float64  `yaml:"cost" json:"cost"`
	ImplementationWeeks int      `yaml:"implementation_weeks" json:"implementationWeeks"`
	Systems             []string `yaml:"systems" json:"systems"`
}

// Catalog is an ordered set of templates.
type Catalog struct {
	Templates []Template `yaml:"templates"`
}

// ParseCatalog decodes and checks a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Templates) == 0 {
		return Catalog{}, fmt.Errorf("parsing catalog: no templates")
	}
	seen := make(map[string]bool, len(c.Templates))
	for i, t := range c.Templates {
		switch {
		case t.Name == "" || t.Slug == "":
			return Catalog{}, fmt.Errorf("template %d: name and slug are required", i)
		case seen[t.Slug]:
			return Catalog{}, fmt.Errorf("template %q: duplicate slug", t.Slug)
		case t.Impact < 1 || t.Impact > 5 || t.Effort < 1 || t.Effort > 5:
			return Catalog{}, fmt.Errorf("template %q: impact and effort must be 1-5", t.Slug)
		case t.Cost <= 0 || t.HoursSavedWeekly <= 0:
			return Catalog{}, fmt.Errorf("template %q: cost and hours saved must be positive", t.Slug)
		}
		seen[t.Slug] = true
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

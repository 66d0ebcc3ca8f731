package opportunity

import "sort"

const roadmapWeeks = 12

// Milestone is a dated checkpoint inside a roadmap phase.
type Milestone struct {
	Week  int    `json:"week"`
	Title string `json:"title"`
}

// RoadmapPhase schedules one opportunity.
type RoadmapPhase struct {
	Phase               int         `json:"phase"`
	Name                string      `json:"name"`
	Slug                string      `json:"slug"`
	Category            string      `json:"category"`
	StartWeek           int         `json:"startWeek"`
	EndWeek             int         `json:"endWeek"`
	ImplementationWeeks int         `json:"implementationWeeks"`
	MonthlySavings      float64     `json:"monthlySavings"`
	ROI                 float64     `json:"roi"`
	Milestones          []Milestone `json:"milestones"`
}

// Roadmap is the 90-day implementation plan.
type Roadmap struct {
	QuickWins  []string       `json:"quickWins"`
	BigSwings  []string       `json:"bigSwings"`
	Phases     []RoadmapPhase `json:"phases"`
	TotalWeeks int            `json:"totalWeeks"`
}

// RoadmapPriority ranks an opportunity for sequencing. Cheap, high-return
// work is pulled forward and the heaviest work is pushed back.
func RoadmapPriority(o Opportunity) float64 {
	p := o.MonthlySavings
	if o.Effort <= 2 && o.ROI12m > 100 {
		p *= 1.5
	}
	if o.ROI12m > 200 {
		p *= 1.2
	}
	if o.Effort >= 5 {
		p *= 0.8
	}
	return p
}

// BuildRoadmap picks the top quick wins and big swings and schedules
// opportunities back to back, lowest effort first, skipping any that would
// run past week 12.
func BuildRoadmap(opps []Opportunity) Roadmap {
	ranked := append([]Opportunity(nil), opps...)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := RoadmapPriority(ranked[i]), RoadmapPriority(ranked[j])
		if pi != pj {
			return pi > pj
		}
		return ranked[i].Slug < ranked[j].Slug
	})

	r := Roadmap{QuickWins: []string{}, BigSwings: []string{}, Phases: []RoadmapPhase{}}
	for _, o := range ranked {
		if o.Effort <= 2 && len(r.QuickWins) < 3 {
			r.QuickWins = append(r.QuickWins, o.Name)
		}
		if o.Effort >= 4 && len(r.BigSwings) < 3 {
			r.BigSwings = append(r.BigSwings, o.Name)
		}
	}

	sequenced := append([]Opportunity(nil), ranked...)
	sort.SliceStable(sequenced, func(i, j int) bool { return sequenced[i].Effort < sequenced[j].Effort })

	week := 0
	for _, o := range sequenced {
		end := week + o.ImplementationWeeks
		if o.ImplementationWeeks <= 0 || end > roadmapWeeks {
			continue
		}
		r.Phases = append(r.Phases, RoadmapPhase{
			Phase:               len(r.Phases) + 1,
			Name:                o.Name,
			Slug:                o.Slug,
			Category:            o.Category,
			StartWeek:           week,
			EndWeek:             end,
			ImplementationWeeks: o.ImplementationWeeks,
			MonthlySavings:      o.MonthlySavings,
			ROI:                 o.ROI12m,
			Milestones: []Milestone{
				{Week: week, Title: "Kickoff & scoping"},
				{Week: week + o.ImplementationWeeks/2, Title: "Staging review"},
				{Week: end, Title: "Production launch"},
			},
		})
		week = end
	}
	r.TotalWeeks = week
	return r
}

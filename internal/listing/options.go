package listing

import (
	"slices"

	"leadbridge/internal/access"
	"leadbridge/internal/leads/domain"
	"leadbridge/internal/leads/repository"
)

// Choice is one option of a select filter.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options is everything a list page needs to render its filter bar.
type Options struct {
	Filters    []string       `json:"filters"`
	Columns    access.Columns `json:"columns"`
	Statuses   []Choice       `json:"statuses"`
	Commission []Choice       `json:"commission,omitempty"`
	Referrers  []Choice       `json:"referrers,omitempty"`
	Advisors   []Choice       `json:"advisors,omitempty"`
	Managers   []Choice       `json:"managers,omitempty"`
	Offices    []Choice       `json:"offices,omitempty"`
}

var commissionLabels = map[string]string{
	CommissionPending:  "Čeká",
	CommissionReady:    "Připravena k vyplacení",
	CommissionPaid:     "Vyplacena",
	CommissionPaidMe:   "Vyplacena mně",
	CommissionUnpaidMe: "Nevyplacena mně",
}

func refChoices(refs []repository.Ref, withNone bool) []Choice {
	out := make([]Choice, 0, len(refs)+1)
	if withNone {
		out = append(out, Choice{Value: None, Label: "Bez přiřazení"})
	}
	for _, r := range refs {
		out = append(out, Choice{Value: r.ID.String(), Label: r.Name})
	}
	return out
}

// BuildOptions keeps only the choices of filters in allowed.
func BuildOptions(v access.Viewer, ctx access.ListContext, allowed []string, refs repository.FilterOptions) Options {
	opts := Options{Filters: allowed, Columns: access.ColumnVisibility(v)}

	if ctx == access.ContextDeals {
		for _, s := range domain.AllDealStatuses {
			opts.Statuses = append(opts.Statuses, Choice{Value: string(s), Label: s.Label()})
		}
	} else {
		for _, s := range domain.AllStatuses {
			opts.Statuses = append(opts.Statuses, Choice{Value: string(s), Label: s.Label()})
		}
	}

	has := func(key string) bool { return slices.Contains(allowed, key) }
	if has(access.FilterCommission) {
		for _, c := range CommissionChoices {
			opts.Commission = append(opts.Commission, Choice{Value: c, Label: commissionLabels[c]})
		}
	}
	if has(access.FilterReferrer) {
		opts.Referrers = refChoices(refs.Referrers, false)
	}
	if has(access.FilterAdvisor) {
		opts.Advisors = refChoices(refs.Advisors, false)
	}
	if has(access.FilterManager) {
		opts.Managers = refChoices(refs.Managers, true)
	}
	if has(access.FilterOffice) {
		opts.Offices = refChoices(refs.Offices, true)
	}
	return opts
}

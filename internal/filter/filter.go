// Package filter drops listings that should not reach ranking.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
)

// Reason explains why a listing was dropped.
type Reason string

// Drop reasons.
const (
	ReasonBrand     Reason = "excluded_brand"
	ReasonPrice     Reason = "price_out_of_bounds"
	ReasonCondition Reason = "condition_not_allowed"
)

// Criteria is the exclusion policy. Zero price bounds are open and an empty
// condition set allows every condition.
type Criteria struct {
	ExcludedBrands    []string
	MinPrice          float64
	MaxPrice          float64
	AllowedConditions []model.Condition
}

// CriteriaFromConfig builds Criteria from the filter config section.
func CriteriaFromConfig(cfg config.FilterConfig) Criteria {
	c := Criteria{
		ExcludedBrands: cfg.ExcludedBrands,
		MinPrice:       cfg.MinPrice,
		MaxPrice:       cfg.MaxPrice,
	}
	for _, s := range cfg.AllowedConditions {
		c.AllowedConditions = append(c.AllowedConditions, model.ParseCondition(s))
	}
	return c
}

// Apply returns the listings that pass c, preserving order. It never mutates
// its input.
func Apply(listings []model.Listing, c Criteria) []model.Listing {
	out, _ := Explain(listings, c)
	return out
}

// Explain is Apply that also counts drops per reason.
func Explain(listings []model.Listing, c Criteria) ([]model.Listing, map[Reason]int) {
	m := newMatcher(c)
	kept := make([]model.Listing, 0, len(listings))
	dropped := make(map[Reason]int)
	for _, l := range listings {
		if r, drop := m.reject(l); drop {
			dropped[r]++
			continue
		}
		kept = append(kept, l)
	}
	return kept, dropped
}

type matcher struct {
	fold       cases.Caser
	brands     []string
	min, max   float64
	conditions map[model.Condition]struct{}
}

func newMatcher(c Criteria) *matcher {
	m := &matcher{fold: cases.Fold(), min: c.MinPrice, max: c.MaxPrice}
	for _, b := range c.ExcludedBrands {
		if b = strings.TrimSpace(b); b != "" {
			m.brands = append(m.brands, m.fold.String(b))
		}
	}
	if len(c.AllowedConditions) > 0 {
		m.conditions = make(map[model.Condition]struct{}, len(c.AllowedConditions))
		for _, cond := range c.AllowedConditions {
			m.conditions[cond] = struct{}{}
		}
	}
	return m
}

func (m *matcher) reject(l model.Listing) (Reason, bool) {
	// An empty nickname matches no brand and is kept for later stages.
	if nick := l.Seller.Nickname; nick != "" && !l.Seller.Placeholder {
		folded := m.fold.String(nick)
		for _, b := range m.brands {
			if strings.Contains(folded, b) {
				return ReasonBrand, true
			}
		}
	}
	if m.min > 0 && l.Price < m.min {
		return ReasonPrice, true
	}
	if m.max > 0 && l.Price > m.max {
		return ReasonPrice, true
	}
	if m.conditions != nil {
		if _, ok := m.conditions[l.Condition]; !ok {
			return ReasonCondition, true
		}
	}
	return "", false
}

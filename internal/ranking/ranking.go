// Package ranking scores listings on price, sales, condition, seller reputation
// and shipping, and orders them best first.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
)

// DefaultConfig returns a config.RankingConfig with the stock weights and
// curve parameters. Weights sum to 1.
func DefaultConfig() config.RankingConfig {
	return config.RankingConfig{
		PriceWeight:     0.4,
		SalesWeight:     0.4,
		ConditionWeight: 0.2,

		// Logistic price curve.
		MaxPrice:   1_000_000,
		PriceFloor: 1000,
		PriceDecay: 100_000,

		MaxSales: 100,

		ConditionScores: map[string]float64{
			string(model.ConditionNew):                     1.0,
			string(model.ConditionNewOther):                0.9,
			string(model.ConditionNewWithDefects):          0.8,
			string(model.ConditionManufacturerRefurbished): 0.7,
			string(model.ConditionSellerRefurbished):       0.6,
			string(model.ConditionUsed):                    0.5,
			string(model.ConditionForParts):                0.3,
			string(model.ConditionNotSpecified):            0.5,
		},
		DefaultCondition: 0.5,

		SellerBase: 0.5,
		LevelMultipliers: map[string]float64{
			"5_green":       1.2,
			"4_light_green": 1.1,
			"3_yellow":      1.0,
			"2_orange":      0.9,
			"1_red":         0.8,
		},
		TransactionBonus:    0.0001,
		MaxTransactionBonus: 0.2,

		ShippingBase:      0.5,
		FreeShippingBonus: 0.2,
		FastShippingBonus: 0.1,

		Limit: 20,
	}
}

// ValidateConfig checks that a RankingConfig is internally consistent.
func ValidateConfig(c config.RankingConfig) error {
	var errs []string

	weights := map[string]float64{
		"price_weight":     c.PriceWeight,
		"sales_weight":     c.SalesWeight,
		"condition_weight": c.ConditionWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if c.PriceWeight+c.SalesWeight+c.ConditionWeight <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if c.PriceDecay <= 0 {
		errs = append(errs, "price_decay must be > 0")
	}
	if c.MaxSales <= 0 {
		errs = append(errs, "max_sales must be > 0")
	}
	if c.Limit < 0 {
		errs = append(errs, "limit must be >= 0")
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return eris.Errorf("ranking: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Breakdown holds the component scores behind one listing's total.
type Breakdown struct {
	Price     float64 `json:"price"`
	Sales     float64 `json:"sales"`
	Condition float64 `json:"condition"`
	Seller    float64 `json:"seller"`
	Shipping  float64 `json:"shipping"`
	Total     float64 `json:"total"`
}

// Scorer computes listing scores. It holds no mutable state.
type Scorer struct {
	cfg config.RankingConfig
}

// New creates a Scorer. Missing curve parameters fall back to DefaultConfig.
func New(cfg config.RankingConfig) *Scorer {
	d := DefaultConfig()
	if cfg.PriceWeight == 0 && cfg.SalesWeight == 0 && cfg.ConditionWeight == 0 {
		cfg.PriceWeight, cfg.SalesWeight, cfg.ConditionWeight = d.PriceWeight, d.SalesWeight, d.ConditionWeight
	}
	if cfg.MaxPrice <= 0 {
		cfg.MaxPrice = d.MaxPrice
	}
	if cfg.PriceDecay <= 0 {
		cfg.PriceDecay = d.PriceDecay
	}
	if cfg.MaxSales <= 0 {
		cfg.MaxSales = d.MaxSales
	}
	if cfg.ConditionScores == nil {
		cfg.ConditionScores = d.ConditionScores
	}
	if cfg.LevelMultipliers == nil {
		cfg.LevelMultipliers = d.LevelMultipliers
	}
	return &Scorer{cfg: cfg}
}

// Score returns the listing's score in [0,1].
func (s *Scorer) Score(l model.Listing) float64 {
	return s.Breakdown(l).Total
}

// Breakdown scores l and reports each component.
func (s *Scorer) Breakdown(l model.Listing) Breakdown {
	b := Breakdown{
		Price:     s.priceScore(l.Price),
		Sales:     s.salesScore(l.SoldQuantity),
		Condition: s.conditionScore(l.Condition),
		Seller:    s.sellerScore(l.Seller),
		Shipping:  s.shippingScore(l.Shipping),
	}
	weighted := b.Price*s.cfg.PriceWeight + b.Sales*s.cfg.SalesWeight + b.Condition*s.cfg.ConditionWeight
	b.Total = clamp(weighted * b.Seller * b.Shipping)
	return b
}

// Rank scores every listing, sorts by score descending with ties kept in input
// order, and returns the first limit entries. A limit of 0 keeps all.
func (s *Scorer) Rank(listings []model.Listing, limit int) []model.RankedListing {
	ranked := make([]model.RankedListing, len(listings))
	for i, l := range listings {
		ranked[i] = model.RankedListing{Listing: l, Score: s.Score(l)}
	}
	slices.SortStableFunc(ranked, func(a, b model.RankedListing) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// priceScore is a decreasing logistic curve; non-positive prices are missing
// data and score 0.
func (s *Scorer) priceScore(price float64) float64 {
	if price <= 0 {
		return 0
	}
	x := (math.Min(price, s.cfg.MaxPrice) - s.cfg.PriceFloor) / s.cfg.PriceDecay
	return clamp(1 / (1 + math.Exp(x)))
}

func (s *Scorer) salesScore(sold int) float64 {
	if sold <= 0 {
		return 0
	}
	return clamp(math.Sqrt(math.Min(float64(sold)/s.cfg.MaxSales, 1)))
}

func (s *Scorer) conditionScore(c model.Condition) float64 {
	if v, ok := s.cfg.ConditionScores[strings.ToLower(string(c))]; ok {
		return v
	}
	return s.cfg.DefaultCondition
}

func (s *Scorer) sellerScore(seller model.SellerIdentity) float64 {
	rep := seller.Reputation
	if rep == nil {
		return s.cfg.SellerBase
	}
	score := s.cfg.SellerBase
	if m, ok := s.cfg.LevelMultipliers[rep.LevelID]; ok {
		score *= m
	}
	if rep.Completed > 0 {
		score += math.Min(float64(rep.Completed)*s.cfg.TransactionBonus, s.cfg.MaxTransactionBonus)
	}
	return clamp(score)
}

func (s *Scorer) shippingScore(sh *model.Shipping) float64 {
	score := s.cfg.ShippingBase
	if sh == nil {
		return clamp(score)
	}
	if sh.Free {
		score += s.cfg.FreeShippingBonus
	}
	if sh.Fast {
		score += s.cfg.FastShippingBonus
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

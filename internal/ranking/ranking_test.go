package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
)

func base(id string, price float64) model.Listing {
	return model.Listing{
		ID:           id,
		Title:        "item",
		Price:        price,
		Condition:    model.ConditionNew,
		SoldQuantity: 10,
		Seller:       model.SellerIdentity{Nickname: "s"},
	}
}

func TestRank_CheaperFirst(t *testing.T) {
	s := New(DefaultConfig())
	got := s.Rank([]model.Listing{base("dear", 2000), base("cheap", 500)}, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "cheap", got[0].ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestRank_Deterministic(t *testing.T) {
	s := New(DefaultConfig())
	in := make([]model.Listing, 0, 30)
	for i := range 30 {
		l := base(fmt.Sprintf("L%02d", i), float64(100+(i%7)*300))
		l.SoldQuantity = i % 5
		in = append(in, l)
	}

	first := s.Rank(in, 10)
	second := s.Rank(in, 10)
	assert.Equal(t, first, second)
	assert.Len(t, first, 10)
}

func TestRank_StableTies(t *testing.T) {
	s := New(DefaultConfig())
	got := s.Rank([]model.Listing{base("a", 100), base("b", 100), base("c", 100)}, 0)

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRank_LimitZeroIsUnlimited(t *testing.T) {
	s := New(DefaultConfig())
	in := []model.Listing{base("a", 1), base("b", 2), base("c", 3)}
	assert.Len(t, s.Rank(in, 0), 3)
	assert.Len(t, s.Rank(in, 2), 2)
	assert.Len(t, s.Rank(in, 10), 3)
	assert.Empty(t, s.Rank(nil, 5))
}

func TestScore_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShippingBase = 1
	cfg.SellerBase = 1
	s := New(cfg)

	listings := []model.Listing{
		{},
		base("neg", -10),
		{
			ID: "max", Price: 1, SoldQuantity: 1e6, Condition: model.ConditionNew,
			Shipping: &model.Shipping{Free: true, Fast: true},
			Seller:   model.SellerIdentity{Nickname: "x", Reputation: &model.Reputation{LevelID: "5_green", Completed: 1e7}},
		},
	}
	for _, l := range listings {
		score := s.Score(l)
		assert.GreaterOrEqual(t, score, 0.0, l.ID)
		assert.LessOrEqual(t, score, 1.0, l.ID)
	}
}

func TestPriceScore_Monotonic(t *testing.T) {
	s := New(DefaultConfig())
	prev := s.priceScore(1)
	for _, p := range []float64{10, 500, 1000, 2000, 50_000, 500_000, 1_000_000, 5_000_000} {
		cur := s.priceScore(p)
		assert.LessOrEqual(t, cur, prev, "price %v", p)
		prev = cur
	}
	assert.Equal(t, 0.0, s.priceScore(0))
	assert.Equal(t, 0.0, s.priceScore(-1))
}

func TestSalesScore(t *testing.T) {
	s := New(DefaultConfig())
	assert.Equal(t, 0.0, s.salesScore(0))
	assert.InDelta(t, 0.5, s.salesScore(25), 1e-9)
	assert.Equal(t, 1.0, s.salesScore(100))
	assert.Equal(t, 1.0, s.salesScore(10_000))
}

func TestConditionScore(t *testing.T) {
	s := New(DefaultConfig())
	assert.Equal(t, 1.0, s.conditionScore(model.ConditionNew))
	assert.Equal(t, 0.3, s.conditionScore(model.ConditionForParts))
	assert.Equal(t, 0.5, s.conditionScore(model.ConditionNotSpecified))
	assert.Equal(t, 0.5, s.conditionScore("mystery"))
}

func TestSellerScore(t *testing.T) {
	s := New(DefaultConfig())
	tests := []struct {
		name string
		rep  *model.Reputation
		want float64
	}{
		{"absent", nil, 0.5},
		{"green no sales", &model.Reputation{LevelID: "5_green"}, 0.6},
		{"red", &model.Reputation{LevelID: "1_red"}, 0.4},
		{"unknown level with sales", &model.Reputation{LevelID: "??", Completed: 1000}, 0.6},
		{"bonus capped", &model.Reputation{LevelID: "5_green", Completed: 1_000_000}, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.sellerScore(model.SellerIdentity{Nickname: "x", Reputation: tt.rep})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestShippingScore(t *testing.T) {
	s := New(DefaultConfig())
	assert.InDelta(t, 0.5, s.shippingScore(nil), 1e-9)
	assert.InDelta(t, 0.7, s.shippingScore(&model.Shipping{Free: true}), 1e-9)
	assert.InDelta(t, 0.8, s.shippingScore(&model.Shipping{Free: true, Fast: true}), 1e-9)
}

func TestBreakdown_Total(t *testing.T) {
	s := New(DefaultConfig())
	b := s.Breakdown(base("a", 500))
	want := (b.Price*0.4 + b.Sales*0.4 + b.Condition*0.2) * b.Seller * b.Shipping
	assert.InDelta(t, want, b.Total, 1e-12)
}

func TestNew_FillsDefaults(t *testing.T) {
	s := New(config.RankingConfig{})
	assert.Equal(t, 0.4, s.cfg.PriceWeight)
	assert.Equal(t, 100.0, s.cfg.MaxSales)
	assert.NotEmpty(t, s.cfg.ConditionScores)
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultConfig()))

	bad := DefaultConfig()
	bad.PriceWeight = -1
	bad.PriceDecay = 0
	err := ValidateConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_weight must be >= 0")
	assert.Contains(t, err.Error(), "price_decay must be > 0")
}

// Package contact resolves a seller's real-world contact details from web
// search results and places lookups.
package contact

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
)

// Resolver produces a partial contact record for a seller.
type Resolver interface {
	Resolve(ctx context.Context, seller string) (model.ContactRecord, error)
}

// Fields each source is trusted for first.
var (
	webFirst    = []string{model.FieldPhone, model.FieldEmail, model.FieldSocialURL}
	placesFirst = []string{model.FieldAddress, model.FieldWebsite, model.FieldPlaceLink}
)

// Facade fans a seller out to the web and places resolvers and merges what
// they find. It never fails: a resolver error or panic counts as no data.
type Facade struct {
	web      Resolver
	places   Resolver
	strategy string
}

// NewFacade creates a Facade. A nil resolver is skipped, as is any resolver the
// strategy excludes.
func NewFacade(web, places Resolver, strategy string) *Facade {
	if strategy == "" {
		strategy = config.StrategyAll
	}
	return &Facade{web: web, places: places, strategy: strategy}
}

// Resolve returns the merged contact record for seller, possibly empty.
func (f *Facade) Resolve(ctx context.Context, seller string) model.ContactRecord {
	if seller == "" {
		return model.ContactRecord{}
	}

	var web, places model.ContactRecord
	var g errgroup.Group
	if f.web != nil && f.strategy != config.StrategyLocation {
		g.Go(func() error {
			web = safeResolve(ctx, "web", f.web, seller)
			return nil
		})
	}
	if f.places != nil && f.strategy != config.StrategyWeb {
		g.Go(func() error {
			places = safeResolve(ctx, "places", f.places, seller)
			return nil
		})
	}
	_ = g.Wait()

	return Merge(web, places)
}

// Merge combines a web record and a places record. Web wins phone, email and
// social URL; places wins address, website and place link. A field present in
// only one record is kept.
func Merge(web, places model.ContactRecord) model.ContactRecord {
	var out model.ContactRecord
	pick := func(field string, first, second *model.ContactRecord) {
		for _, rec := range []*model.ContactRecord{first, second} {
			if v := rec.Get(field); v != "" {
				out.Set(field, v, rec.Sources[field])
				return
			}
		}
	}
	for _, field := range webFirst {
		pick(field, &web, &places)
	}
	for _, field := range placesFirst {
		pick(field, &places, &web)
	}
	return out
}

func safeResolve(ctx context.Context, name string, r Resolver, seller string) (rec model.ContactRecord) {
	log := zap.L().With(zap.String("resolver", name), zap.String("seller", seller))
	defer func() {
		if p := recover(); p != nil {
			log.Error("contact: resolver panicked", zap.Error(eris.New(fmt.Sprint(p))))
			rec = model.ContactRecord{}
		}
	}()

	rec, err := r.Resolve(ctx, seller)
	if err != nil {
		log.Warn("contact: resolver failed", zap.Error(err))
		return model.ContactRecord{}
	}
	return rec
}

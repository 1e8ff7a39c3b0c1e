package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/translation"
)

type offeringRepository struct {
	db *table[offering.Offering]
}

var _ offering.Repository = (*offeringRepository)(nil)

func NewOfferingRepository(db *DB) *offeringRepository {
	return &offeringRepository{db: db.offerings}
}

func (repo *offeringRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	return len(repo.db.filter(func(o offering.Offering) bool { return o.Slug == slug })) > 0, nil
}

func (repo *offeringRepository) SaveOffering(_ context.Context, o offering.Offering) (offering.Offering, error) {
	key := rowKey(o.Slug, o.Lang)
	if existing, ok := repo.db.get(key); ok {
		o.ID = existing.ID
		o.CreatedAt = existing.CreatedAt
	} else {
		o.ID = uuid.New().String()
	}
	repo.db.put(key, o)
	return o, nil
}

func (repo *offeringRepository) UpdateShared(_ context.Context, slug string, shared offering.Shared) error {
	repo.db.updateWhere(
		func(o offering.Offering) bool { return o.Slug == slug },
		func(o *offering.Offering) {
			o.Icon = shared.Icon
			o.ImageURL = shared.ImageURL
			o.Position = shared.Position
			o.IsActive = shared.IsActive
		})
	return nil
}

func (repo *offeringRepository) GetOffering(_ context.Context, slug string, lang i18n.Lang) (offering.Offering, error) {
	if o, ok := repo.db.get(rowKey(slug, lang)); ok {
		return o, nil
	}
	return offering.Offering{}, core.ErrNotFound
}

func (repo *offeringRepository) GetTranslations(_ context.Context, slug string) ([]offering.Offering, error) {
	return repo.db.filter(func(o offering.Offering) bool { return o.Slug == slug }), nil
}

func (repo *offeringRepository) QueryOfferings(_ context.Context, lang i18n.Lang, filter *offering.QueryFilter, ordering []core.DBOrdering) ([]offering.Offering, error) {
	rows := repo.db.filter(func(o offering.Offering) bool {
		if o.Lang != lang {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(o.Title, filter.Search) && !containsFold(o.Summary, filter.Search) {
			return false
		}
		return filter.IsActive == nil || o.IsActive == *filter.IsActive
	})

	orderBy(rows, ordering, lessFuncs[offering.Offering]{
		"position":   func(a, b offering.Offering) bool { return a.Position < b.Position },
		"title":      func(a, b offering.Offering) bool { return a.Title < b.Title },
		"created_at": func(a, b offering.Offering) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"updated_at": func(a, b offering.Offering) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	}, func(a, b offering.Offering) bool {
		if a.Position == b.Position {
			return a.Slug < b.Slug
		}
		return a.Position < b.Position
	})
	return rows, nil
}

func (repo *offeringRepository) DeleteOfferings(_ context.Context, slug string) (int, error) {
	return repo.db.deleteWhere(func(o offering.Offering) bool { return o.Slug == slug }), nil
}

func (repo *offeringRepository) QueryPending(_ context.Context) ([]translation.PendingRow, error) {
	return pending(repo.db.filter(nil)), nil
}

package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

type faqRepository struct {
	db *table[faq.FAQ]
}

var _ faq.Repository = (*faqRepository)(nil)

func NewFAQRepository(db *DB) *faqRepository {
	return &faqRepository{db: db.faqs}
}

func (repo *faqRepository) SaveFAQ(_ context.Context, f faq.FAQ) (faq.FAQ, error) {
	key := rowKey(f.Group, f.Lang)
	if existing, ok := repo.db.get(key); ok {
		f.ID = existing.ID
		f.CreatedAt = existing.CreatedAt
	} else {
		f.ID = uuid.New().String()
	}
	repo.db.put(key, f)
	return f, nil
}

func (repo *faqRepository) UpdateShared(_ context.Context, group string, position int, active bool) error {
	repo.db.updateWhere(
		func(f faq.FAQ) bool { return f.Group == group },
		func(f *faq.FAQ) {
			f.Position = position
			f.IsActive = active
		})
	return nil
}

func (repo *faqRepository) GetFAQ(_ context.Context, group string, lang i18n.Lang) (faq.FAQ, error) {
	if f, ok := repo.db.get(rowKey(group, lang)); ok {
		return f, nil
	}
	return faq.FAQ{}, core.ErrNotFound
}

func (repo *faqRepository) GetTranslations(_ context.Context, group string) ([]faq.FAQ, error) {
	return repo.db.filter(func(f faq.FAQ) bool { return f.Group == group }), nil
}

func (repo *faqRepository) QueryFAQs(_ context.Context, lang i18n.Lang, filter *faq.QueryFilter, ordering []core.DBOrdering) ([]faq.FAQ, error) {
	rows := repo.db.filter(func(f faq.FAQ) bool {
		if f.Lang != lang {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(f.Question, filter.Search) && !containsFold(f.Answer, filter.Search) {
			return false
		}
		return filter.IsActive == nil || f.IsActive == *filter.IsActive
	})

	orderBy(rows, ordering, lessFuncs[faq.FAQ]{
		"position":   func(a, b faq.FAQ) bool { return a.Position < b.Position },
		"created_at": func(a, b faq.FAQ) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"updated_at": func(a, b faq.FAQ) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	}, func(a, b faq.FAQ) bool {
		if a.Position == b.Position {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Position < b.Position
	})
	return rows, nil
}

func (repo *faqRepository) DeleteFAQs(_ context.Context, group string) (int, error) {
	return repo.db.deleteWhere(func(f faq.FAQ) bool { return f.Group == group }), nil
}

func (repo *faqRepository) QueryPending(_ context.Context) ([]translation.PendingRow, error) {
	return pending(repo.db.filter(nil)), nil
}

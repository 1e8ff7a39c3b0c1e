package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/review"
)

type reviewRepository struct {
	db *table[review.Review]
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *DB) *reviewRepository {
	return &reviewRepository{db: db.reviews}
}

func (repo *reviewRepository) CreateReview(_ context.Context, r review.Review) (review.Review, error) {
	r.ID = uuid.New().String()
	repo.db.put(r.ID, r)
	return r, nil
}

func (repo *reviewRepository) GetReview(_ context.Context, id string) (review.Review, error) {
	if r, ok := repo.db.get(id); ok {
		return r, nil
	}
	return review.Review{}, core.ErrNotFound
}

func (repo *reviewRepository) QueryReviews(_ context.Context, filter *review.QueryFilter, ordering []core.DBOrdering) ([]review.Review, error) {
	rows := repo.db.filter(func(r review.Review) bool {
		if filter == nil {
			return true
		}
		if filter.IsApproved != nil && r.IsApproved != *filter.IsApproved {
			return false
		}
		if filter.Lang != "" && r.Lang != filter.Lang {
			return false
		}
		return r.Rating >= filter.MinRating
	})

	orderBy(rows, ordering, lessFuncs[review.Review]{
		"created_at": func(a, b review.Review) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"rating":     func(a, b review.Review) bool { return a.Rating < b.Rating },
		"name":       func(a, b review.Review) bool { return a.Name < b.Name },
	}, func(a, b review.Review) bool { return a.CreatedAt.After(b.CreatedAt) })
	return rows, nil
}

func (repo *reviewRepository) UpdateReview(_ context.Context, r review.Review) (review.Review, error) {
	updated, ok := repo.db.update(r.ID, func(old *review.Review) { *old = r })
	if !ok {
		return review.Review{}, core.ErrNotFound
	}
	return updated, nil
}

func (repo *reviewRepository) DeleteReviews(_ context.Context, ids ...string) (int, error) {
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}
	return repo.db.deleteWhere(func(r review.Review) bool { return toDelete[r.ID] }), nil
}

type contactRepository struct {
	db *table[contact.Submission]
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *DB) *contactRepository {
	return &contactRepository{db: db.contacts}
}

func (repo *contactRepository) CreateSubmission(_ context.Context, s contact.Submission) (contact.Submission, error) {
	s.ID = uuid.New().String()
	repo.db.put(s.ID, s)
	return s, nil
}

func (repo *contactRepository) GetSubmission(_ context.Context, id string) (contact.Submission, error) {
	if s, ok := repo.db.get(id); ok {
		return s, nil
	}
	return contact.Submission{}, core.ErrNotFound
}

func (repo *contactRepository) QuerySubmissions(_ context.Context, filter *contact.QueryFilter, ordering []core.DBOrdering) ([]contact.Submission, error) {
	rows := repo.db.filter(func(s contact.Submission) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(s.Name, filter.Search) && !containsFold(s.Email, filter.Search) && !containsFold(s.Message, filter.Search) {
			return false
		}
		return filter.IsRead == nil || s.IsRead == *filter.IsRead
	})

	orderBy(rows, ordering, lessFuncs[contact.Submission]{
		"created_at": func(a, b contact.Submission) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"name":       func(a, b contact.Submission) bool { return a.Name < b.Name },
		"email":      func(a, b contact.Submission) bool { return a.Email < b.Email },
	}, func(a, b contact.Submission) bool { return a.CreatedAt.After(b.CreatedAt) })
	return rows, nil
}

func (repo *contactRepository) SetSubmissionRead(_ context.Context, id string, read bool) (contact.Submission, error) {
	s, ok := repo.db.update(id, func(s *contact.Submission) { s.IsRead = read })
	if !ok {
		return contact.Submission{}, core.ErrNotFound
	}
	return s, nil
}

func (repo *contactRepository) DeleteSubmissions(_ context.Context, ids ...string) (int, error) {
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}
	return repo.db.deleteWhere(func(s contact.Submission) bool { return toDelete[s.ID] }), nil
}

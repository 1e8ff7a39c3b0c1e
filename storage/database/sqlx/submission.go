package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/review"
)

const (
	reviewColumns  = `id, name, rating, content, lang, is_approved, created_at`
	contactColumns = `id, name, email, phone, service_slug, message, lang, is_read, created_at`
)

type reviewRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Rating     int       `db:"rating"`
	Content    string    `db:"content"`
	Lang       string    `db:"lang"`
	IsApproved bool      `db:"is_approved"`
	CreatedAt  time.Time `db:"created_at"`
}

func toReviewRow(r review.Review) reviewRow {
	return reviewRow{
		ID:         r.ID,
		Name:       r.Name,
		Rating:     r.Rating,
		Content:    r.Content,
		Lang:       string(r.Lang),
		IsApproved: r.IsApproved,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (r reviewRow) review() review.Review {
	return review.Review{
		ID:         r.ID,
		Name:       r.Name,
		Rating:     r.Rating,
		Content:    r.Content,
		Lang:       i18n.Lang(r.Lang),
		IsApproved: r.IsApproved,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo *reviewRepository) CreateReview(ctx context.Context, r review.Review) (review.Review, error) {
	r.ID = uuid.New().String()
	row := toReviewRow(r)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO reviews (`+reviewColumns+`)
		VALUES (:id, :name, :rating, :content, :lang, :is_approved, :created_at)`, row)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return row.review(), nil
}

func (repo *reviewRepository) GetReview(ctx context.Context, id string) (review.Review, error) {
	if !validUUID(id) {
		return review.Review{}, core.ErrNotFound
	}
	var row reviewRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id); err != nil {
		return review.Review{}, trapNoRowsErr(err, "getting review")
	}
	return row.review(), nil
}

func (repo *reviewRepository) QueryReviews(ctx context.Context, filter *review.QueryFilter, ordering []core.DBOrdering) ([]review.Review, error) {
	var w where
	if filter != nil {
		if filter.IsApproved != nil {
			w.add("is_approved = ?", *filter.IsApproved)
		}
		if filter.Lang != "" {
			w.add("lang = ?", string(filter.Lang))
		}
		if filter.MinRating > 0 {
			w.add("rating >= ?", filter.MinRating)
		}
	}

	var rows []reviewRow
	q := `SELECT ` + reviewColumns + ` FROM reviews` + w.String() + core.OrderBy(ordering, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]review.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, r.review())
	}
	return reviews, nil
}

func (repo *reviewRepository) UpdateReview(ctx context.Context, r review.Review) (review.Review, error) {
	if !validUUID(r.ID) {
		return review.Review{}, core.ErrNotFound
	}
	row := toReviewRow(r)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE reviews SET
		name = :name, rating = :rating, content = :content, is_approved = :is_approved
		WHERE id = :id`, row)
	n, err := rowsAffected(res, err, "updating review")
	if err != nil {
		return review.Review{}, err
	}
	if n == 0 {
		return review.Review{}, core.ErrNotFound
	}
	return row.review(), nil
}

func (repo *reviewRepository) DeleteReviews(ctx context.Context, ids ...string) (int, error) {
	return deleteByIDs(ctx, repo.db, "reviews", ids)
}

type contactRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Email       string      `db:"email"`
	Phone       null.String `db:"phone"`
	ServiceSlug null.String `db:"service_slug"`
	Message     string      `db:"message"`
	Lang        string      `db:"lang"`
	IsRead      bool        `db:"is_read"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r contactRow) submission() contact.Submission {
	return contact.Submission{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		ServiceSlug: r.ServiceSlug,
		Message:     r.Message,
		Lang:        i18n.Lang(r.Lang),
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type contactRepository struct {
	db *sqlx.DB
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *sqlx.DB) *contactRepository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateSubmission(ctx context.Context, s contact.Submission) (contact.Submission, error) {
	row := contactRow{
		ID:          uuid.New().String(),
		Name:        s.Name,
		Email:       s.Email,
		Phone:       s.Phone,
		ServiceSlug: s.ServiceSlug,
		Message:     s.Message,
		Lang:        string(s.Lang),
		IsRead:      s.IsRead,
		CreatedAt:   s.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO contact_submissions (`+contactColumns+`)
		VALUES (:id, :name, :email, :phone, :service_slug, :message, :lang, :is_read, :created_at)`, row)
	if err != nil {
		return contact.Submission{}, errors.Wrap(err, "inserting contact submission")
	}
	return row.submission(), nil
}

func (repo *contactRepository) GetSubmission(ctx context.Context, id string) (contact.Submission, error) {
	if !validUUID(id) {
		return contact.Submission{}, core.ErrNotFound
	}
	var row contactRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+contactColumns+` FROM contact_submissions WHERE id = $1`, id); err != nil {
		return contact.Submission{}, trapNoRowsErr(err, "getting contact submission")
	}
	return row.submission(), nil
}

func (repo *contactRepository) QuerySubmissions(ctx context.Context, filter *contact.QueryFilter, ordering []core.DBOrdering) ([]contact.Submission, error) {
	var w where
	if filter != nil {
		w.search(filter.Search, "name", "email", "message")
		if filter.IsRead != nil {
			w.add("is_read = ?", *filter.IsRead)
		}
	}

	var rows []contactRow
	q := `SELECT ` + contactColumns + ` FROM contact_submissions` + w.String() + core.OrderBy(ordering, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying contact submissions")
	}
	subs := make([]contact.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.submission())
	}
	return subs, nil
}

func (repo *contactRepository) SetSubmissionRead(ctx context.Context, id string, read bool) (contact.Submission, error) {
	if !validUUID(id) {
		return contact.Submission{}, core.ErrNotFound
	}
	var row contactRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE contact_submissions SET is_read = $1 WHERE id = $2 RETURNING `+contactColumns, read, id)
	if err != nil {
		return contact.Submission{}, trapNoRowsErr(err, "marking contact submission")
	}
	return row.submission(), nil
}

func (repo *contactRepository) DeleteSubmissions(ctx context.Context, ids ...string) (int, error) {
	return deleteByIDs(ctx, repo.db, "contact_submissions", ids)
}

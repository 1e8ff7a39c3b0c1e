package sqlxrepos

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/user"
)

var userCols = []string{"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login"}

func TestUserRepository_CheckUsernameUniqueness(t *testing.T) {
	ctx := context.Background()
	excluded := user.User{ID: "5f0c2b1e-8a47-4c1e-9a43-3b0d5b3f1c11"}

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{name: "unique", rows: sqlmock.NewRows([]string{"username", "email"})},
		{name: "username taken", rows: sqlmock.NewRows([]string{"username", "email"}).AddRow("amina", nil), wantErr: user.ErrUsernameExists},
		{name: "email taken", rows: sqlmock.NewRows([]string{"username", "email"}).AddRow(nil, "amina@khidmat.test"), wantErr: user.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT username, email FROM "user" WHERE (username = $1 OR email = $2) AND id NOT IN ($3) LIMIT 1`)).
				WithArgs("amina", "amina@khidmat.test", excluded.ID).
				WillReturnRows(tt.rows)

			err := NewUserRepository(db).CheckUsernameUniqueness(ctx, "amina", "amina@khidmat.test", excluded)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "user" (`)).
		WithArgs(sqlmock.AnyArg(), "Amina", "amina", nil, true, `{"admin:"}`, []byte("hash"), now, now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	usr, err := repo.CreateUser(ctx, user.User{
		Name: "Amina", Username: "amina", Roles: []string{user.RoleAdmin}, PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.Active())

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "user" WHERE (username = $1 OR email = $2) LIMIT 1`)).
		WithArgs("amina", "amina").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(usr.ID, "Amina", "amina", nil, false, "{admin:,admin:owner}", []byte("hash"), now, now, now))

	got, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "amina"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.Empty(t, got.Email)
	assert.False(t, got.Active())
	assert.True(t, got.IsOwner())
	assert.Equal(t, now, got.LastLogin)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
	assert.True(t, core.IsNotFound(err), "no query for invalid ids")

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "user" WHERE username = $1 LIMIT 1`)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetUser(ctx, user.GetFilter{Username: "ghost"})
	assert.True(t, core.IsNotFound(err))
}

func TestUserRepository_QueryUsers(t *testing.T) {
	db, mock := newMock(t)
	active := true
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "user" WHERE (name ILIKE $1 OR username ILIKE $2 OR email ILIKE $3) AND ` +
		`EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ANY ($4)) AND is_active = $5 AND created_at >= $6 ` +
		`ORDER BY name ASC`)).
		WithArgs("%kh%", "%kh%", "%kh%", `{"admin:owner%"}`, true, from).
		WillReturnRows(sqlmock.NewRows(userCols))

	users, err := NewUserRepository(db).QueryUsers(context.Background(),
		&user.QueryFilter{Search: "kh", Roles: []string{user.RoleAdminOwner}, IsActive: &active, CreatedFrom: from},
		[]core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepository_DeleteUsersByID(t *testing.T) {
	db, mock := newMock(t)
	ids := []string{"5f0c2b1e-8a47-4c1e-9a43-3b0d5b3f1c11", "9b1d7a9e-0a4f-4c5e-8d2b-6f0e4f9b2a22"}

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "user" WHERE id IN ($1, $2)`)).
		WithArgs(ids[0], ids[1]).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewUserRepository(db).DeleteUsersByID(context.Background(), append(ids, "bogus")...)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

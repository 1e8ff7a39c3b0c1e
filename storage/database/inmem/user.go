package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/user"
)

type userRepository struct {
	db *table[user.User]
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.users}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}

	for _, usr := range repo.db.filter(func(u user.User) bool { return !excluded[u.ID] }) {
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	repo.db.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	users := repo.db.filter(func(u user.User) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(u.Name, filter.Search) && !containsFold(u.Username, filter.Search) && !containsFold(u.Email, filter.Search) {
			return false
		}
		if len(filter.Roles) > 0 {
			var match bool
			for _, role := range filter.Roles {
				if u.RoleStartsWith(role) {
					match = true
					break
				}
			}
			if !match {
				return false
			}
		}
		if filter.IsActive != nil && u.Active() != *filter.IsActive {
			return false
		}
		if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom) {
			return false
		}
		if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo) {
			return false
		}
		return true
	})

	orderBy(users, ordering, lessFuncs[user.User]{
		"name":       func(a, b user.User) bool { return a.Name < b.Name },
		"username":   func(a, b user.User) bool { return a.Username < b.Username },
		"email":      func(a, b user.User) bool { return a.Email < b.Email },
		"created_at": func(a, b user.User) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"last_login": func(a, b user.User) bool { return a.LastLogin.Before(b.LastLogin) },
	}, func(a, b user.User) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	if filter.ID != "" {
		if usr, ok := repo.db.get(filter.ID); ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	users := repo.db.filter(func(u user.User) bool {
		switch {
		case filter.Username != "":
			return u.Username == filter.Username
		case filter.Email != "":
			return u.Email == filter.Email
		case filter.UsernameOrEmail != "":
			uname := strings.ToLower(filter.UsernameOrEmail)
			return u.Username == uname || u.Email == uname
		}
		return false
	})
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	updated, ok := repo.db.update(usr.ID, func(u *user.User) {
		*u = usr
	})
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return updated, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	if _, ok := repo.db.get(usr.ID); !ok {
		repo.db.put(usr.ID, usr)
		return usr, nil
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}
	return repo.db.deleteWhere(func(u user.User) bool { return toDelete[u.ID] }), nil
}

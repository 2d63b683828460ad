package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/user"
)

// userRepository keeps staff accounts in memory. It serves DEV without a database and the tests.
type userRepository struct {
	mu    sync.RWMutex
	table map[string]*user.User
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository() *userRepository {
	return &userRepository{table: make(map[string]*user.User)}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.table))
	for _, u := range repo.table {
		users = append(users, clone(*u))
	}
	return users
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email, excludedID string) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, usr := range repo.table {
		if usr.ID == excludedID {
			continue
		}
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
	repo.mu.Lock()
	defer repo.mu.Unlock()

	usr = clone(usr)
	repo.table[usr.ID] = &usr
	return clone(usr), nil
}

func (repo *userRepository) QueryAllUsers(_ context.Context, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := repo.query()
	order(users, orderings)
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if usr, ok := repo.table[id]; ok {
		return clone(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.table {
		if (usr.Username == username) || (usr.Email == username) {
			return clone(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(usr.Username, search) &&
			!strings.Contains(usr.Email, search) {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if len(filter.Roles) > 0 && !hasAnyRole(usr, filter.Roles) {
			continue
		}
		users = append(users, usr)
	}
	order(users, orderings)
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	// only save set fields
	origUsr, ok := repo.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Roles != nil {
		origUsr.Roles = append([]string(nil), usr.Roles...)
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.Name = usr.Name
	origUsr.Username = usr.Username
	origUsr.Email = usr.Email
	origUsr.UpdatedAt = usr.UpdatedAt
	return clone(*origUsr), nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, at time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	usr, ok := repo.table[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = at
	return nil
}

func clone(usr user.User) user.User {
	usr.Roles = append([]string(nil), usr.Roles...)
	return usr
}

func hasAnyRole(usr user.User, roles []string) bool {
	for _, want := range roles {
		for _, role := range usr.Roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

// order sorts users by orderings, then by name. Unknown fields are ignored.
func order(users []user.User, orderings []core.DBOrdering) {
	key := func(usr user.User, field string) (string, time.Time) {
		switch field {
		case "name":
			return strings.ToLower(usr.Name), time.Time{}
		case "username":
			return usr.Username, time.Time{}
		case "email":
			return usr.Email, time.Time{}
		case "created_at":
			return "", usr.CreatedAt
		case "last_login":
			return "", usr.LastLogin
		}
		return "", time.Time{}
	}
	orderings = append(orderings, core.DBOrdering{Field: "name", Ascending: true})

	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range orderings {
			si, ti := key(users[i], ord.Field)
			sj, tj := key(users[j], ord.Field)
			if si == sj && ti.Equal(tj) {
				continue
			}
			less := si < sj || (si == sj && ti.Before(tj))
			if ord.Ascending {
				return less
			}
			return !less
		}
		return users[i].ID < users[j].ID
	})
}

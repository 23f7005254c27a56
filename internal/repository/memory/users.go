package memory

import (
	"context"
	"sort"

	"github.com/Freeeeeet/tutorconnect/internal/model"
)

type UserStore struct {
	store *Store
}

// Add добавляет или заменяет пользователя; ID обязателен
func (r *UserStore) Add(u *model.User) {
	_ = r.store.write(context.Background(), func(d *dataset) error {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = r.store.now()
		}
		d.users[u.ID] = cloneUser(u)
		return nil
	})
}

// GetByID получает пользователя по ID
func (r *UserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	var user *model.User
	r.store.read(func(d *dataset) {
		if u, ok := d.users[id]; ok {
			user = cloneUser(u)
		}
	})
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserStore) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	var user *model.User
	r.store.read(func(d *dataset) {
		for _, u := range d.users {
			if u.TelegramID != nil && *u.TelegramID == telegramID {
				user = cloneUser(u)
				return
			}
		}
	})
	return user, nil
}

// GetByIDs получает пользователей по списку ID, отсортированных по имени
func (r *UserStore) GetByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	users := []*model.User{}
	r.store.read(func(d *dataset) {
		for _, id := range ids {
			if u, ok := d.users[id]; ok {
				users = append(users, cloneUser(u))
			}
		}
	})
	sort.Slice(users, func(i, j int) bool {
		return users[i].FullName < users[j].FullName
	})
	return users, nil
}

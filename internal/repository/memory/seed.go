package memory

import "github.com/Freeeeeet/tutorconnect/internal/model"

// DemoUsers пользователи для локального запуска без базы данных
func DemoUsers() []*model.User {
	return []*model.User{
		{ID: 1, FullName: "Platform Admin", Email: "admin@tutorconnect.local", Role: model.RoleAdmin, Timezone: "UTC"},
		{ID: 2, FullName: "Maria Ivanova", Email: "maria@tutorconnect.local", Role: model.RoleTutor, Timezone: "Europe/Moscow", IsVerified: true},
		{ID: 3, FullName: "John Carter", Email: "john@tutorconnect.local", Role: model.RoleTutor, Timezone: "America/New_York", IsVerified: true},
		{ID: 4, FullName: "Alex Student", Email: "alex@tutorconnect.local", Role: model.RoleStudent, Timezone: "Europe/Berlin"},
		{ID: 5, FullName: "Kim Student", Email: "kim@tutorconnect.local", Role: model.RoleStudent, Timezone: "Asia/Tokyo"},
	}
}

// Seed заполняет хранилище пользователями
func (s *Store) Seed(users []*model.User) {
	repo := s.Users()
	for _, u := range users {
		repo.Add(u)
	}
}

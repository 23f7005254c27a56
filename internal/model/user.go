package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// Valid проверяет, что роль известна
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor || r == RoleAdmin
}

// User запись из подсистемы пользователей; ядро расписания её только читает
type User struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Timezone   string    `json:"timezone"`
	IsVerified bool      `json:"is_verified"`
	TelegramID *int64    `json:"telegram_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Actor контекст текущего пользователя, передаётся в каждый вызов сервисов
type Actor struct {
	UserID   int64
	Role     Role
	Timezone string
}

// IsAdmin администратор платформы
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Is проверяет, что действует указанный пользователь (или администратор)
func (a Actor) Is(userID int64) bool {
	return a.IsAdmin() || a.UserID == userID
}

// ActorOf строит контекст из записи пользователя
func ActorOf(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role, Timezone: u.Timezone}
}

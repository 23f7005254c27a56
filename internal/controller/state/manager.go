package state

import (
	"sync"
)

// Manager хранит диалоги пользователей в памяти процесса
type Manager struct {
	mu      sync.RWMutex
	dialogs map[int64]Dialog // telegramID -> Dialog
}

func NewManager() *Manager {
	return &Manager{
		dialogs: make(map[int64]Dialog),
	}
}

// GetState текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.dialogs[telegramID].State
}

// Get копия диалога пользователя
func (sm *Manager) Get(telegramID int64) (Dialog, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	d, ok := sm.dialogs[telegramID]
	return d, ok
}

// Set сохраняет диалог; StateNone удаляет запись
func (sm *Manager) Set(telegramID int64, d Dialog) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if d.State == StateNone {
		delete(sm.dialogs, telegramID)
		return
	}
	sm.dialogs[telegramID] = d
}

// StartReschedule начинает диалог переноса бронирования
func (sm *Manager) StartReschedule(telegramID, bookingID int64) {
	sm.Set(telegramID, Dialog{State: StateRescheduleDate, BookingID: bookingID})
}

// ClearState очищает состояние пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.dialogs, telegramID)
}

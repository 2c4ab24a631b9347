package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// ErrNotFound сессия с указанным идентификатором не существует
var ErrNotFound = errors.New("session not found")

// Источники загруженного набора данных
const (
	SourceUpload    = "upload"
	SourceSimulated = "simulated"
)

// Session состояние одного пользователя: его набор данных и активный профиль.
// Сессии не разделяют изменяемое состояние между собой.
type Session struct {
	ID            string             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	ActiveProfile string             `json:"active_profile"`
	Source        string             `json:"source,omitempty"`
	Records       []telemetry.Record `json:"-"`
}

// Registry реестр активных сессий
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create регистрирует новую сессию с указанным активным профилем
func (r *Registry) Create(profileName string) Session {
	s := &Session{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now(),
		ActiveProfile: profileName,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return *s
}

// Get возвращает копию сессии; записи неизменяемы, поэтому срез разделяется
func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *s, nil
}

// SetDataset заменяет набор данных сессии
func (r *Registry) SetDataset(id string, records []telemetry.Record, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Records = records
	s.Source = source
	return nil
}

// SetProfile переключает активный профиль сессии
func (r *Registry) SetProfile(id, profileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.ActiveProfile = profileName
	return nil
}

// Count количество активных сессий
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

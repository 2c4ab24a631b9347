package profile

import (
	"fmt"
	"sync"

	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// DefaultProfile имя встроенного профиля по умолчанию
const DefaultProfile = "Standard"

// Persistence внешний механизм хранения пользовательских профилей
type Persistence interface {
	LoadUserProfiles() ([]MissionProfile, error)
	SaveUserProfile(p MissionProfile) error
}

// Store хранилище профилей: встроенные только для чтения, пользовательские
// добавляются через Save. Выданные профили всегда являются копиями.
type Store struct {
	mu       sync.RWMutex
	builtins []MissionProfile
	user     []MissionProfile
	persist  Persistence
}

// NewStore создает хранилище со встроенными профилями и подгружает
// пользовательские из persist, если он задан
func NewStore(persist Persistence) (*Store, error) {
	s := &Store{
		builtins: builtinProfiles(),
		persist:  persist,
	}

	if persist != nil {
		loaded, err := persist.LoadUserProfiles()
		if err != nil {
			return nil, fmt.Errorf("failed to load user profiles: %w", err)
		}
		for _, p := range loaded {
			if s.isBuiltin(p.Name) {
				continue
			}
			if err := ValidateBounds(p.Bounds); err != nil {
				continue
			}
			s.user = append(s.user, p.Clone())
		}
	}

	return s, nil
}

// Get возвращает копию профиля по имени
func (s *Store) Get(name string) (MissionProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.builtins {
		if p.Name == name {
			return p.Clone(), nil
		}
	}
	for _, p := range s.user {
		if p.Name == name {
			return p.Clone(), nil
		}
	}
	return MissionProfile{}, &NotFoundError{Name: name}
}

// List возвращает имена профилей: встроенные в фиксированном порядке,
// затем пользовательские в порядке создания
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.builtins)+len(s.user))
	for _, p := range s.builtins {
		names = append(names, p.Name)
	}
	for _, p := range s.user {
		names = append(names, p.Name)
	}
	return names
}

// Save валидирует и сохраняет пользовательский профиль; повторное имя
// перезаписывает профиль на его прежней позиции
func (s *Store) Save(name string, bounds map[string]Bounds) error {
	if name == "" {
		return &ValidationError{Reason: "profile name must not be empty"}
	}
	if s.isBuiltin(name) {
		return &ValidationError{Reason: fmt.Sprintf("built-in profile %q is read-only", name)}
	}
	if err := ValidateBounds(bounds); err != nil {
		return err
	}

	p := MissionProfile{Name: name, Bounds: bounds}.Clone()

	s.mu.Lock()
	replaced := false
	for i := range s.user {
		if s.user[i].Name == name {
			s.user[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.user = append(s.user, p)
	}
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.SaveUserProfile(p.Clone()); err != nil {
			return fmt.Errorf("failed to persist profile %q: %w", name, err)
		}
	}
	return nil
}

// isBuiltin проверяет, занято ли имя встроенным профилем
func (s *Store) isBuiltin(name string) bool {
	for _, p := range s.builtins {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ptr вспомогательный конструктор границы
func ptr(v float64) *float64 {
	return &v
}

// builtinProfiles пороговые значения миссий; velocity нигде не ограничена
func builtinProfiles() []MissionProfile {
	return []MissionProfile{
		{
			Name: DefaultProfile,
			Bounds: map[string]Bounds{
				telemetry.ParamTemperature: {Low: ptr(0), High: ptr(40)},
				telemetry.ParamPressure:    {Low: ptr(0.8), High: ptr(1.2)},
				telemetry.ParamVelocity:    {},
				telemetry.ParamBattery:     {Low: ptr(20)},
				telemetry.ParamFuel:        {Low: ptr(20)},
			},
		},
		{
			Name: "LEO Satellite",
			Bounds: map[string]Bounds{
				telemetry.ParamTemperature: {Low: ptr(-5), High: ptr(35)},
				telemetry.ParamPressure:    {Low: ptr(0.9), High: ptr(1.1)},
				telemetry.ParamVelocity:    {},
				telemetry.ParamBattery:     {Low: ptr(30)},
				telemetry.ParamFuel:        {Low: ptr(25)},
			},
		},
		{
			Name: "Deep Space Probe",
			Bounds: map[string]Bounds{
				telemetry.ParamTemperature: {Low: ptr(-20), High: ptr(30)},
				telemetry.ParamPressure:    {Low: ptr(0.7), High: ptr(1.0)},
				telemetry.ParamVelocity:    {},
				telemetry.ParamBattery:     {Low: ptr(40)},
				telemetry.ParamFuel:        {Low: ptr(35)},
			},
		},
		{
			Name: "Mars Mission",
			Bounds: map[string]Bounds{
				telemetry.ParamTemperature: {Low: ptr(-40), High: ptr(25)},
				telemetry.ParamPressure:    {Low: ptr(0.6), High: ptr(0.9)},
				telemetry.ParamVelocity:    {},
				telemetry.ParamBattery:     {Low: ptr(50)},
				telemetry.ParamFuel:        {Low: ptr(40)},
			},
		},
		{
			Name: "Venus Orbiter",
			Bounds: map[string]Bounds{
				telemetry.ParamTemperature: {Low: ptr(10), High: ptr(60)},
				telemetry.ParamPressure:    {Low: ptr(0.8), High: ptr(1.2)},
				telemetry.ParamVelocity:    {},
				telemetry.ParamBattery:     {Low: ptr(35)},
				telemetry.ParamFuel:        {Low: ptr(30)},
			},
		},
		{
			Name: "Lunar Lander",
			Bounds: map[string]Bounds{
				telemetry.ParamTemperature: {Low: ptr(-30), High: ptr(40)},
				telemetry.ParamPressure:    {Low: ptr(0.85), High: ptr(1.05)},
				telemetry.ParamVelocity:    {},
				telemetry.ParamBattery:     {Low: ptr(45)},
				telemetry.ParamFuel:        {Low: ptr(20)},
			},
		},
	}
}

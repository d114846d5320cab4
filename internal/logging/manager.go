package logging

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Компоненты конвейера сервера
const (
	ComponentStorage  = "storage"
	ComponentCache    = "cache"
	ComponentEventBus = "eventbus"
	ComponentMesher   = "mesher"
	ComponentAPI      = "api"
)

// PipelineComponents — компоненты в порядке запуска сервера
var PipelineComponents = []string{
	ComponentStorage,
	ComponentCache,
	ComponentEventBus,
	ComponentMesher,
	ComponentAPI,
}

// Levels — консольные пороги компонентов. Файлы компонентов всегда пишут с DEBUG.
type Levels struct {
	Default    LogLevel
	Components map[string]LogLevel
}

// For возвращает порог компонента, иначе Default
func (lv Levels) For(component string) LogLevel {
	if level, ok := lv.Components[component]; ok {
		return level
	}
	return lv.Default
}

// ParseLevels строит Levels из имён уровней конфигурации.
// Имена компонентов приводятся к нижнему регистру.
func ParseLevels(defaultLevel string, components map[string]string) Levels {
	lv := Levels{
		Default:    ParseLevel(defaultLevel),
		Components: make(map[string]LogLevel, len(components)),
	}
	for name, level := range components {
		lv.Components[strings.ToLower(strings.TrimSpace(name))] = ParseLevel(level)
	}
	return lv
}

// Registry хранит по одному логгеру на компонент и применяет к ним пороги
type Registry struct {
	mu        sync.Mutex
	levels    Levels
	loggers   map[string]*Logger
	newLogger func(component string) (*Logger, error)
}

var (
	registry     *Registry
	registryOnce sync.Once
)

// NewRegistry создаёт реестр с файловыми логгерами (см. SetLogDir)
func NewRegistry(levels Levels) *Registry {
	return &Registry{
		levels:    levels,
		loggers:   make(map[string]*Logger),
		newLogger: NewLogger,
	}
}

// Components возвращает глобальный реестр процесса
func Components() *Registry {
	registryOnce.Do(func() {
		registry = NewRegistry(Levels{Default: INFO})
	})
	return registry
}

// Configure задаёт пороги, применяет их к уже выданным логгерам и заранее
// создаёт логгеры перечисленных компонентов. Ошибка открытия файла одного
// компонента не мешает остальным.
func (r *Registry) Configure(levels Levels, components ...string) error {
	r.mu.Lock()
	r.levels = levels
	for name, l := range r.loggers {
		l.SetLevels(levels.For(name), DEBUG)
	}
	r.mu.Unlock()

	var errs []error
	for _, name := range components {
		if _, err := r.open(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger возвращает логгер компонента. Если файл открыть не удалось,
// компонент пишет только в консоль.
func (r *Registry) Logger(component string) *Logger {
	l, err := r.open(component)
	if err == nil {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loggers[component]; ok {
		return l
	}
	l = &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: r.levels.For(component),
		minFileLevel:    ERROR,
	}
	r.loggers[component] = l
	l.Warn("⚠️ Логи компонента только в консоль: %v", err)
	return l
}

func (r *Registry) open(component string) (*Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loggers[component]; ok {
		return l, nil
	}
	l, err := r.newLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	l.SetLevels(r.levels.For(component), DEBUG)
	r.loggers[component] = l
	return l, nil
}

// Names возвращает отсортированные имена компонентов с логгерами
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetLevel меняет консольный порог компонента на лету
func (r *Registry) SetLevel(component string, level LogLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loggers[component]
	if !ok {
		return fmt.Errorf("компонент %s не зарегистрирован", component)
	}
	if r.levels.Components == nil {
		r.levels.Components = make(map[string]LogLevel)
	}
	r.levels.Components[component] = level
	l.SetLevels(level, DEBUG)
	return nil
}

// Close закрывает файлы всех компонентов и очищает реестр
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, l := range r.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	r.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// GetComponentLogger возвращает логгер компонента из глобального реестра
func GetComponentLogger(component string) *Logger {
	return Components().Logger(component)
}

func GetStorageLogger() *Logger  { return GetComponentLogger(ComponentStorage) }
func GetCacheLogger() *Logger    { return GetComponentLogger(ComponentCache) }
func GetEventBusLogger() *Logger { return GetComponentLogger(ComponentEventBus) }
func GetMesherLogger() *Logger   { return GetComponentLogger(ComponentMesher) }
func GetAPILogger() *Logger      { return GetComponentLogger(ComponentAPI) }

package state

import (
	"sort"
	"sync"
	"sync/atomic"

	"griffin/internal/models"
)

// Registry - реестр состояний: symbol -> broker -> *BrokerState.
//
// Записи создаются при первом тике пары (symbol, broker) и живут до конца
// процесса - суммарная память ограничена ёмкостями кольцевых буферов.
// Внешняя карта под RWMutex: ингест почти всегда идёт по быстрому пути
// чтения, write lock берётся ровно один раз на пару.
//
// Помимо живого состояния реестр хранит последний опубликованный
// AnalysisSnapshot за атомарным указателем: оркестратор строит новый
// снапшот в стороне и подменяет его одной операцией, читатели видят либо
// старый, либо новый целиком.
type Registry struct {
	mu     sync.RWMutex
	states map[string]map[string]*BrokerState

	params Params
	clock  func() float64

	published atomic.Pointer[models.AnalysisSnapshot]
}

// NewRegistry создаёт пустой реестр. clock возвращает текущее время в
// секундах epoch; в тестах подменяется детерминированным источником.
func NewRegistry(params Params, clock func() float64) *Registry {
	r := &Registry{
		states: make(map[string]map[string]*BrokerState),
		params: params,
		clock:  clock,
	}

	empty := models.AnalysisSnapshot{}
	r.published.Store(&empty)
	return r
}

// Route возвращает состояние пары (symbol, broker), создавая его при
// первом обращении. Возвращённый указатель стабилен на всё время жизни
// процесса.
func (r *Registry) Route(symbol, broker string) *BrokerState {
	// Быстрый путь: пара уже существует
	r.mu.RLock()
	if brokers, ok := r.states[symbol]; ok {
		if b, ok := brokers[broker]; ok {
			r.mu.RUnlock()
			return b
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	brokers, ok := r.states[symbol]
	if !ok {
		brokers = make(map[string]*BrokerState)
		r.states[symbol] = brokers
	}
	// Перепроверка под write lock'ом - пару могла создать другая горутина
	if b, ok := brokers[broker]; ok {
		return b
	}

	b := NewBrokerState(broker, symbol, r.clock(), r.params)
	brokers[broker] = b
	return b
}

// Lookup возвращает существующее состояние без создания нового.
// Используется слиппедж- и латентность-ингестом: замеры для пары,
// по которой ещё не было ни одного тика, отбрасываются.
func (r *Registry) Lookup(symbol, broker string) (*BrokerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	brokers, ok := r.states[symbol]
	if !ok {
		return nil, false
	}
	b, ok := brokers[broker]
	return b, ok
}

// EnumerateBySymbol возвращает снимок реестра для аналитического прохода.
// Брокеры каждого символа отсортированы по имени - перечисление
// детерминировано, что фиксирует разрешение ничьих при выборе лидера.
func (r *Registry) EnumerateBySymbol() map[string][]*BrokerState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]*BrokerState, len(r.states))
	for symbol, brokers := range r.states {
		list := make([]*BrokerState, 0, len(brokers))
		for _, b := range brokers {
			list = append(list, b)
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].BrokerName() < list[j].BrokerName()
		})
		out[symbol] = list
	}
	return out
}

// PublishSnapshot атомарно подменяет опубликованный снапшот.
func (r *Registry) PublishSnapshot(snapshot models.AnalysisSnapshot) {
	r.published.Store(&snapshot)
}

// Snapshot возвращает последний опубликованный снапшот.
// До первого аналитического прохода - пустой (не nil) снапшот.
func (r *Registry) Snapshot() models.AnalysisSnapshot {
	return *r.published.Load()
}

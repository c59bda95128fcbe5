package ratelimit

import (
	"sync"
	"time"
)

// Limiter - Token Bucket rate limiter для защиты ингест-endpoints
//
// Алгоритм Token Bucket:
// - Ведро наполняется токенами с постоянной скоростью (rate токенов/сек)
// - Максимальная ёмкость ведра = burst (позволяет короткие всплески)
// - Каждый запрос потребляет 1 токен
// - Если токенов нет, запрос отклоняется
//
// Почему здесь достаточно неблокирующего Allow:
// тик, который мы не приняли, через 50-200 мс заменит следующий -
// ждать токен бессмысленно, клиент всё равно пришлёт более свежую цену.
//
// Использование:
//
//	limiter := NewLimiter(500, 1000) // 500 req/sec, burst 1000
//	if limiter.Allow() { ... }       // неблокирующая проверка
type Limiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость (burst capacity)
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewLimiter создаёт новый rate limiter.
//
// Параметры:
//   - rate: количество запросов в секунду
//   - burst: максимальный burst (обычно 1.5-2x от rate)
func NewLimiter(rate, burst float64) *Limiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = rate * 2
	}
	if burst < rate {
		burst = rate
	}

	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени.
// ВАЖНО: вызывается под lock'ом.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	l.lastRefill = now
}

// Allow проверяет доступность токена без блокировки.
//
// Возвращает:
//   - true: токен получен, запрос можно обработать
//   - false: лимит исчерпан, запрос нужно отклонить
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Tokens возвращает текущее количество токенов (для тестов и метрик).
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// KeyedLimiter - набор независимых лимитеров по ключу (например, client IP)
//
// Каждый источник получает собственное ведро, чтобы один болтливый
// клиент не выедал лимит остальных.
type KeyedLimiter struct {
	rate     float64
	burst    float64
	limiters map[string]*Limiter
	mu       sync.Mutex
}

// NewKeyedLimiter создаёт набор лимитеров с общими параметрами rate/burst.
func NewKeyedLimiter(rate, burst float64) *KeyedLimiter {
	return &KeyedLimiter{
		rate:     rate,
		burst:    burst,
		limiters: make(map[string]*Limiter),
	}
}

// Allow проверяет лимит для указанного ключа, создавая ведро при первом обращении.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	limiter, ok := kl.limiters[key]
	if !ok {
		limiter = NewLimiter(kl.rate, kl.burst)
		kl.limiters[key] = limiter
	}
	kl.mu.Unlock()

	return limiter.Allow()
}

// Len возвращает количество отслеживаемых ключей.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

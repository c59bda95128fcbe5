package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Ядро анализа работает с временем как с float64 секундами epoch -
// все формулы (decay, окна верификации, таймфреймы) определены в секундах.
// Здесь собраны переводы между time.Time и этим представлением.

// NowSeconds возвращает текущее время в секундах epoch с дробной частью.
func NowSeconds() float64 {
	return ToSeconds(time.Now())
}

// NowMillis возвращает текущее время в миллисекундах epoch.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

// ToSeconds переводит time.Time в секунды epoch с дробной частью.
func ToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FormatClock форматирует секунды epoch как локальное время HH:MM:SS.
//
// Используется для поля time_str в журнале подтверждённых глитчей.
func FormatClock(seconds float64) string {
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("15:04:05")
}

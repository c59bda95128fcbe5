package utils

import (
	"regexp"
	"strings"
)

// normalize.go - нормализация входных данных на границе ингеста
//
// Назначение:
// Брокеры присылают символы и цены в произвольном виде ("EURUSD.m",
// "eurusd_pro", "1.10 USD"). Перед маршрутизацией в реестр все значения
// приводятся к каноническому виду.
//
// Функции:
// - NormalizeSymbol: канонизация имени инструмента
// - SanitizeNumeric: очистка числовой строки от мусора

var (
	symbolPrefixRe   = regexp.MustCompile(`^([A-Z]{6})`)
	nonAlphaNumRe    = regexp.MustCompile(`[^A-Z0-9]`)
	nonNumericCharRe = regexp.MustCompile(`[^\d.]`)
)

// NormalizeSymbol приводит имя инструмента к каноническому виду.
//
// Правила:
//  1. Перевод в верхний регистр.
//  2. Если строка начинается с шести латинских букв - берутся они
//     ("EURUSD.m" -> "EURUSD").
//  3. Иначе удаляются все символы кроме [A-Z0-9].
func NormalizeSymbol(symbol string) string {
	upper := strings.ToUpper(symbol)
	if m := symbolPrefixRe.FindString(upper); m != "" {
		return m
	}
	return nonAlphaNumRe.ReplaceAllString(upper, "")
}

// SanitizeNumeric удаляет из строки всё кроме цифр и точки.
//
// Пустой результат заменяется на "0.0", чтобы дальнейший парсинг
// давал ноль, а не ошибку (поведение зафиксировано контрактом ингеста).
func SanitizeNumeric(raw string) string {
	cleaned := nonNumericCharRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return "0.0"
	}
	return cleaned
}

package tables

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status - семантический статус строки для бейджа.
type Status int

// Статусы строк. Неизвестное значение статусной колонки считается ожидающим.
const (
	StatusPending Status = iota
	StatusGood
	StatusBad
)

// String возвращает имя статуса, используемое как CSS класс.
func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusBad:
		return "bad"
	default:
		return "pending"
	}
}

// Filter преобразует отображаемое значение ячейки.
type Filter func(string) string

// Title - фильтр, приводящий значение к виду "Title Case".
// Подчеркивание разделяет слова: "error_deleting" -> "Error_Deleting".
func Title(s string) string {
	caser := cases.Title(language.Und)
	words := strings.Split(s, "_")
	for i, word := range words {
		words[i] = caser.String(word)
	}
	return strings.Join(words, "_")
}

// Column описывает колонку таблицы.
type Column[T any] struct {
	Name        string
	VerboseName string
	// Accessor возвращает сырое значение ячейки.
	Accessor func(datum *T) string
	// Link строит ссылку ячейки, nil - ячейка без ссылки.
	Link func(datum *T) string
	// Truncate - максимальная длина значения в символах, 0 - без ограничения.
	Truncate int
	Filters  []Filter
	// StatusChoices сопоставляет сырое значение статусу, ключи без учета регистра.
	StatusChoices map[string]Status
	// DisplayChoices сопоставляет сырое значение отображаемому, ключи без учета регистра.
	DisplayChoices map[string]string
	Attrs          map[string]string
}

// Value возвращает отображаемое значение ячейки и полное значение до обрезки.
func (c *Column[T]) Value(datum *T) (value, full string) {
	raw := c.Accessor(datum)

	display, ok := lookupFold(c.DisplayChoices, raw)
	if !ok {
		display = raw
		for _, f := range c.Filters {
			display = f(display)
		}
	}
	return truncate(display, c.Truncate), display
}

// Status возвращает статус строки по значению колонки.
func (c *Column[T]) Status(datum *T) Status {
	status, ok := lookupFold(c.StatusChoices, c.Accessor(datum))
	if !ok {
		return StatusPending
	}
	return status
}

func lookupFold[V any](choices map[string]V, key string) (V, bool) {
	if v, ok := choices[key]; ok {
		return v, true
	}
	for k, v := range choices {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

const ellipsis = "…"

// truncate обрезает строку до n символов, многоточие входит в длину.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + ellipsis
}

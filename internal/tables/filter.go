package tables

import "strings"

// Параметр запроса фильтра по умолчанию.
const defaultFilterParam = "q"

// NameFilter фильтрует строки таблицы по вхождению подстроки в имя без учета регистра.
type NameFilter[T any] struct {
	// QueryParam - параметр запроса со строкой фильтра, по умолчанию "q".
	QueryParam string
	Name       func(datum *T) string
}

// Param возвращает имя параметра запроса.
func (f *NameFilter[T]) Param() string {
	if f.QueryParam == "" {
		return defaultFilterParam
	}
	return f.QueryParam
}

// Apply возвращает строки, имя которых содержит query.
func (f *NameFilter[T]) Apply(data []T, query string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return data
	}
	filtered := make([]T, 0, len(data))
	for i := range data {
		if strings.Contains(strings.ToLower(f.Name(&data[i])), query) {
			filtered = append(filtered, data[i])
		}
	}
	return filtered
}

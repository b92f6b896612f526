package models

// Rule представляет правило доступа к снапшоту.
// State - непрозрачная строка статуса, ее значения определяет сервис.
type Rule struct {
	ID         string `json:"id"`
	AccessType string `json:"access_type"`
	AccessTo   string `json:"access_to"`
	State      string `json:"state"`
}

// AllowAccessRequest представляет тело запроса на добавление правила доступа.
type AllowAccessRequest struct {
	AccessType string `json:"access_type"`
	AccessTo   string `json:"access_to"`
}

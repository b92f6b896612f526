package models

// Имена ресурсов в квотах.
const (
	QuotaSnapshots = "snapshots"
	QuotaShares    = "shares"
	QuotaGigabytes = "gigabytes"
)

// QuotaUsage описывает использование одной квоты проекта.
type QuotaUsage struct {
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	Available int  `json:"available"`
	Unlimited bool `json:"unlimited"`
}

// Exhausted сообщает, что свободных единиц ресурса не осталось.
func (u QuotaUsage) Exhausted() bool {
	return !u.Unlimited && u.Available <= 0
}

// QuotaUsages - использование квот по имени ресурса.
type QuotaUsages map[string]QuotaUsage

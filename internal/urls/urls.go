// Package urls содержит адреса страниц дашборда и шаблоны маршрутов chi.
package urls

import (
	"net/url"
)

// Префикс всех страниц раздела файловых ресурсов.
const Prefix = "/project/shares"

// Параметры маршрутов.
const (
	ParamSnapshotID = "snapshot_id"
	ParamRuleID     = "rule_id"
	ParamShareID    = "share_id"
)

// Шаблоны маршрутов относительно Prefix.
const (
	RouteSnapshots      = "/snapshots/"
	RouteSnapshotDetail = "/snapshots/{snapshot_id}/"
	RouteSnapshotRow    = "/snapshots/{snapshot_id}/row"
	RouteSnapshotEdit   = "/snapshots/{snapshot_id}/update"
	RouteSnapshotRules  = "/snapshots/{snapshot_id}/rules/"
	RouteRuleRow        = "/snapshots/{snapshot_id}/rules/{rule_id}/row"
	RouteRuleAdd        = "/snapshots/{snapshot_id}/rules/add"
	RouteShareCreate    = "/create"
	RouteShareDetail    = "/{share_id}/"
	RouteCreateSnapshot = "/{share_id}/create_snapshot"
)

const (
	snapshotQueryParam   = "snapshot_id"
	snapshotsPathSegment = "/snapshots/"
)

// Snapshots - список снапшотов.
func Snapshots() string {
	return Prefix + RouteSnapshots
}

// SnapshotDetail - страница снапшота.
func SnapshotDetail(snapshotID string) string {
	return snapshotPath(snapshotID) + "/"
}

// SnapshotRow - ajax-обновление строки снапшота.
func SnapshotRow(snapshotID string) string {
	return snapshotPath(snapshotID) + "/row"
}

// SnapshotEdit - форма изменения снапшота.
func SnapshotEdit(snapshotID string) string {
	return snapshotPath(snapshotID) + "/update"
}

// SnapshotRules - правила доступа к снапшоту.
func SnapshotRules(snapshotID string) string {
	return snapshotPath(snapshotID) + "/rules/"
}

// RuleRow - ajax-обновление строки правила.
func RuleRow(snapshotID, ruleID string) string {
	return snapshotPath(snapshotID) + "/rules/" + url.PathEscape(ruleID) + "/row"
}

// RuleAdd - форма добавления правила доступа.
func RuleAdd(snapshotID string) string {
	return snapshotPath(snapshotID) + "/rules/add"
}

// ShareDetail - страница ресурса.
func ShareDetail(shareID string) string {
	return Prefix + "/" + url.PathEscape(shareID) + "/"
}

// CreateSnapshot - форма создания снапшота ресурса.
func CreateSnapshot(shareID string) string {
	return Prefix + "/" + url.PathEscape(shareID) + "/create_snapshot"
}

// ShareCreate - форма создания ресурса, snapshotID заполняет источник (может быть пустым).
func ShareCreate(snapshotID string) string {
	base := Prefix + RouteShareCreate
	if snapshotID == "" {
		return base
	}
	return base + "?" + url.Values{snapshotQueryParam: {snapshotID}}.Encode()
}

func snapshotPath(snapshotID string) string {
	return Prefix + snapshotsPathSegment + url.PathEscape(snapshotID)
}

package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/models"
	"github.com/mrtmm/manila-ui/internal/tables"
	"github.com/mrtmm/manila-ui/internal/urls"
)

// Длина описания в таблице снапшотов.
const descriptionTruncate = 40

// Статусы снапшота для бейджей.
var snapshotStatusChoices = map[string]tables.Status{
	models.StatusInUse:     tables.StatusGood,
	models.StatusAvailable: tables.StatusGood,
	models.StatusCreating:  tables.StatusPending,
	models.StatusError:     tables.StatusBad,
}

// Отображаемые значения статусов снапшота ("Current status of snapshot").
var snapshotStatusDisplay = map[string]string{
	models.StatusInUse:     "In-use",
	models.StatusAvailable: "Available",
	models.StatusCreating:  "Creating",
	models.StatusError:     "Error",
}

// NewSnapshotsTable создает таблицу снапшотов.
// shares используется действиями строк и должен создаваться на каждый запрос.
func NewSnapshotsTable(client api.Client, shares *ShareLookup) *tables.Table[models.Snapshot] {
	deleteAction := NewDeleteSnapshot(client)

	return &tables.Table[models.Snapshot]{
		Name:        "snapshots",
		VerboseName: "Snapshots",
		Columns: []*tables.Column[models.Snapshot]{
			{
				Name:        "name",
				VerboseName: "Name",
				Accessor:    func(s *models.Snapshot) string { return s.DisplayName() },
				Link:        func(s *models.Snapshot) string { return urls.SnapshotDetail(s.ID) },
			},
			{
				Name:        "description",
				VerboseName: "Description",
				Accessor:    func(s *models.Snapshot) string { return s.Description },
				Truncate:    descriptionTruncate,
			},
			{
				Name:        "size",
				VerboseName: "Size",
				Accessor:    SizeDisplay,
				Attrs:       map[string]string{"data-type": "size"},
			},
			{
				Name:           "status",
				VerboseName:    "Status",
				Accessor:       func(s *models.Snapshot) string { return s.Status },
				Filters:        []tables.Filter{tables.Title},
				StatusChoices:  snapshotStatusChoices,
				DisplayChoices: snapshotStatusDisplay,
			},
			SnapshotShareNameColumn(),
		},
		ObjectID:      func(s *models.Snapshot) string { return s.ID },
		ObjectDisplay: func(s *models.Snapshot) string { return s.DisplayName() },
		StatusColumn:  "status",
		TableActions:  []tables.Action[models.Snapshot]{deleteAction},
		RowActions: []tables.Action[models.Snapshot]{
			EditSnapshot{},
			NewCreateShareFromSnapshot(shares),
			NewManageRules(shares),
			deleteAction,
		},
		Filter: &tables.NameFilter[models.Snapshot]{
			Name: func(s *models.Snapshot) string { return s.DisplayName() },
		},
		RowURL: urls.SnapshotRow,
	}
}

// SnapshotShareNameColumn - колонка "Source" со ссылкой на исходный ресурс снапшота.
func SnapshotShareNameColumn() *tables.Column[models.Snapshot] {
	return &tables.Column[models.Snapshot]{
		Name:        "source",
		VerboseName: "Source",
		Accessor: func(s *models.Snapshot) string {
			if s.ShareName != "" {
				return s.ShareName
			}
			return s.ShareID
		},
		Link: func(s *models.Snapshot) string { return urls.ShareDetail(s.ShareID) },
	}
}

// SizeDisplay возвращает размер снапшота в виде "<n>GiB".
func SizeDisplay(s *models.Snapshot) string {
	return fmt.Sprintf("%dGiB", s.Size)
}

// LoadSnapshots получает снапшоты проекта и заполняет имена исходных ресурсов.
// Полученные ресурсы добавляются в shares. Ошибка получения ресурсов не прерывает загрузку.
func LoadSnapshots(ctx context.Context, client api.Client, shares *ShareLookup) ([]models.Snapshot, error) {
	snapshots, err := client.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	shareList, err := client.ListShares(ctx)
	if err != nil {
		log.Printf("[Snapshots:LoadSnapshots] Ошибка получения ресурсов: %v", err)
		messages.Error(ctx, "Unable to retrieve snapshot's source share.")
		return snapshots, nil
	}
	shares.Seed(shareList)

	names := make(map[string]string, len(shareList))
	for i := range shareList {
		names[shareList[i].ID] = shareList[i].DisplayName()
	}
	for i := range snapshots {
		snapshots[i].ShareName = names[snapshots[i].ShareID]
	}
	return snapshots, nil
}

// UpdateRow получает актуальные данные строки снапшота.
// Пустое имя заменяется на ID, отсутствующий снапшот дает tables.ErrNotFound.
func UpdateRow(ctx context.Context, client api.Client, shares *ShareLookup, snapshotID string) (*models.Snapshot, error) {
	snapshot, err := client.GetSnapshot(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("снапшот %s: %w", snapshotID, tables.ErrNotFound)
		}
		return nil, err
	}
	if snapshot.Name == "" {
		snapshot.Name = snapshotID
	}

	if share, errShare := shares.Get(ctx, snapshot.ShareID); errShare == nil {
		snapshot.ShareName = share.DisplayName()
	} else {
		log.Printf("[Snapshots:UpdateRow] Ресурс %s снапшота %s не получен: %v", snapshot.ShareID, snapshotID, errShare)
	}
	return snapshot, nil
}

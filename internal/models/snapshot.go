package models

// Статусы снапшота, которые возвращает сервис файловых ресурсов.
const (
	StatusAvailable     = "available"
	StatusInUse         = "in-use"
	StatusCreating      = "creating"
	StatusError         = "error"
	StatusErrorDeleting = "error_deleting"
)

// Snapshot представляет снапшот файлового ресурса (share).
type Snapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int    `json:"size"` // Размер в GiB
	Status      string `json:"status"`
	ShareID     string `json:"share_id"`
	ProjectID   string `json:"project_id"`
	CreatedAt   string `json:"created_at,omitempty"` // Сервис отдает время без часового пояса

	// ShareName заполняется дашбордом для колонки "Source", сервис его не возвращает.
	ShareName string `json:"-"`
}

// DisplayName возвращает имя снапшота или его ID, если имя пустое.
func (s *Snapshot) DisplayName() string {
	if s.Name == "" {
		return s.ID
	}
	return s.Name
}

// CreateSnapshotRequest представляет тело запроса на создание снапшота.
type CreateSnapshotRequest struct {
	ShareID     string `json:"share_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Force       bool   `json:"force"`
}

// UpdateSnapshotRequest представляет тело запроса на изменение снапшота.
type UpdateSnapshotRequest struct {
	Name        string `json:"display_name"`
	Description string `json:"display_description"`
}

package models

// Share представляет сетевой файловый ресурс.
type Share struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int    `json:"size"`
	Status      string `json:"status"`
	ProjectID   string `json:"project_id"`
	ShareProto  string `json:"share_proto"`
	// SnapshotSupport по умолчанию true: старые версии сервиса поле не отдают,
	// значение по умолчанию проставляет API-клиент при декодировании.
	SnapshotSupport      bool `json:"snapshot_support"`
	MountSnapshotSupport bool `json:"mount_snapshot_support"`
}

// DisplayName возвращает имя ресурса или его ID, если имя пустое.
func (s *Share) DisplayName() string {
	if s.Name == "" {
		return s.ID
	}
	return s.Name
}

// CreateShareRequest представляет тело запроса на создание ресурса.
type CreateShareRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Size        int    `json:"size"`
	ShareProto  string `json:"share_proto"`
	SnapshotID  string `json:"snapshot_id,omitempty"`
}

package transport

type TaskRequest struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	Assignee    string            `json:"assignee"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Status      string            `json:"status"`
	Priority    int               `json:"priority"`
	DueAt       string            `json:"due_at"`
	Metadata    map[string]string `json:"metadata"`
}

type StatusChangeRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

type BulkStatusRequest struct {
	TaskIDs []string `json:"task_ids"`
	Status  string   `json:"status"`
	Actor   string   `json:"actor"`
}

type TimerActionRequest struct {
	Actor string `json:"actor"`
}

type ProjectRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SlaHours int    `json:"sla_hours"`
}

type SlaSettingsRequest struct {
	SlaHours   int `json:"sla_hours"`
	AmberHours int `json:"amber_hours"`
	RedHours   int `json:"red_hours"`
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

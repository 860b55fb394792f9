package dto

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query" validate:"required"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Route     string `json:"route"`
	Answer    string `json:"answer"`
}

type RouteRequest struct {
	Query string `json:"query" validate:"required"`
}

type RouteResponse struct {
	Route string `json:"route"`
}

type MessageResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type SessionMessagesResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []MessageResponse `json:"messages"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

package models

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type RouteName string

const (
	RouteFAQ  RouteName = "faq"
	RouteSQL  RouteName = "sql"
	RouteNone RouteName = "none"
)

package domain

import (
	"strings"
	"time"
)

type ResourceType string
type Visibility string

const (
	ResourceTypeFile      ResourceType = "file"
	ResourceTypeDirectory ResourceType = "directory"

	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Share struct {
	Token        string       `json:"token" db:"token"`
	ResourceType ResourceType `json:"resource_type" db:"resource_type"`
	ResourceID   string       `json:"resource_id" db:"resource_id"`
	OwnerID      string       `json:"owner_id" db:"owner_id"`
	Visibility   Visibility   `json:"visibility" db:"visibility"`
	UserIDs      string       `json:"user_ids" db:"user_ids"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	IsActive     bool         `json:"is_active" db:"is_active"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// AllowedUsers разбирает список допущенных пользователей из строки user_ids.
func (s *Share) AllowedUsers() []string {
	if s.UserIDs == "" {
		return nil
	}
	parts := strings.Split(s.UserIDs, ",")
	users := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			users = append(users, p)
		}
	}
	return users
}

func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

func (s *Share) AllowsUser(userID string) bool {
	for _, id := range s.AllowedUsers() {
		if id == userID {
			return true
		}
	}
	return false
}

// ShareAccess — результат успешного обращения к шаре: подписанный доступ к CDN,
// ограниченный префиксом пути этого токена.
type ShareAccess struct {
	Token        string            `json:"token"`
	ResourceType ResourceType      `json:"resource_type"`
	ResourceURL  string            `json:"resource_url"`
	SignedURL    string            `json:"signed_url,omitempty"`
	Cookies      map[string]string `json:"cookies,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

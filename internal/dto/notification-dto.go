package dto

type NotificationRouteDTO struct {
	Category string `json:"category"`
	Role     string `json:"role"`
	Path     string `json:"path"`
}

package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/DmytryS/user-actions-service/internal/service"
)

// PerformActionRequest payload for POST /actions/:id.
type PerformActionRequest struct {
	Password string `json:"password"`
}

func (r PerformActionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

// ActionResponse is the redacted view of an action.
type ActionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// NewActionResponse maps a service view.
func NewActionResponse(v *service.ActionView) ActionResponse {
	return ActionResponse{ID: v.ID, Status: string(v.Status), Type: string(v.Type)}
}

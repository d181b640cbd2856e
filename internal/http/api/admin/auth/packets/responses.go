package packets

import "github.com/Nixie-Tech-LLC/signage/internal/model"

type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

package api

import (
	"time"

	"shopauth/cmd/identity"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatarUrl"`
}

type sessionResponse struct {
	User            userResponse `json:"user"`
	AccessExpiresAt time.Time    `json:"accessExpiresAt"`
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type sweepResponse struct {
	Removed int64 `json:"removed"`
}

func toUserResponse(p identity.Principal) userResponse {
	return userResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      string(p.Role),
		AvatarURL: p.AvatarURL,
	}
}

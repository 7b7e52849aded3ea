package models

// LoginRequest holds credentials for token authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued credential token.
type LoginResponse struct {
	Token string `json:"token"`
}

// ChangePasswordRequest payload for updating the account password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// Credential is a stored session credential. CSRFToken mirrors the csrftoken
// cookie the API sets; it is replayed in the X-CSRFToken header.
type Credential struct {
	Token     string `db:"token"`
	Username  string `db:"username"`
	CSRFToken string `db:"csrf_token"`
}

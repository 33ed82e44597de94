package request

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest is the request body for verifying an email address
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendRequest is the request body for requesting a new code
type ResendRequest struct {
	Email string `json:"email"`
}

// LoginRequest is the request body for signing in. Identifier is an
// email address or a username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ChangePasswordRequest is the request body for changing a password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AcceptingMessagesRequest is the request body for toggling the inbox
type AcceptingMessagesRequest struct {
	Accepting *bool `json:"accepting"`
}

// UpdateProfileRequest is the request body for updating the profile.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// SendMessageRequest is the request body for posting an anonymous message
type SendMessageRequest struct {
	Content string `json:"content"`
}

package handler

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type registerResponse struct {
	AccountID string `json:"account_id"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt string `json:"expires_at"`
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

package auth

// Credentials holds the token pair issued on login or registration.
type Credentials struct {
	AccessToken  string `json:"access" yaml:"access"`
	RefreshToken string `json:"refresh" yaml:"refresh"`
}

// Complete reports whether both tokens are present. A half-populated pair is
// never treated as an authenticated state.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// LoginRequest is the body of POST /users/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /users/register/.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterResponse wraps the tokens returned by registration.
type RegisterResponse struct {
	Tokens Credentials `json:"tokens"`
}

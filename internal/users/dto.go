package users

// Backend endpoints used by the store.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathMe       = "/users/me"
)

// TokenKey is the device storage key holding the session token.
const TokenKey = "token"

var adminRoles = map[string]struct{}{
	"超级用户": {},
	"管理员":  {},
}

// User is the profile returned by the backend. Values are replaced wholesale.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	Telephone string `json:"telephone"`
	Role      string `json:"role"`
	Introduce string `json:"introduce,omitempty"`
}

// IsAdmin reports whether the backend grants this role administrative access.
func (u User) IsAdmin() bool {
	_, ok := adminRoles[u.Role]
	return ok
}

// LoginRequest is the credential body sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is free-form; the backend owns its schema.
type RegisterRequest map[string]any

// UpdateUserRequest carries only the fields the caller wants changed.
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Gender    *string `json:"gender,omitempty"`
	Telephone *string `json:"telephone,omitempty"`
	Introduce *string `json:"introduce,omitempty"`
}

// Empty reports whether no field is set.
func (r UpdateUserRequest) Empty() bool {
	return r.Email == nil && r.Gender == nil && r.Telephone == nil && r.Introduce == nil
}

// AuthPayload is the data section of login and register responses:
// the token lives at data.token and the user at data.user.
type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Session is a point-in-time copy of the store's state.
type Session struct {
	Token string
	User  *User
}

// IsAuthenticated is derived from the token alone.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

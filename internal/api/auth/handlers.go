package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/api/apiutil"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/ratelimit"
	"github.com/tupichanga/courtbook/internal/request"
)

const minPasswordLength = 8

var (
	limiter      *ratelimit.Limiter
	phoneRegion  string
	trustProxy   bool
	handlersOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(lim *ratelimit.Limiter, defaultPhoneRegion string, proxyTrusted bool) {
	if lim == nil {
		return
	}
	handlersOnce.Do(func() {
		limiter = lim
		phoneRegion = defaultPhoneRegion
		trustProxy = proxyTrusted
	})
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		ImageURL:  u.ImageURL,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// POST /api/v1/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := apiutil.DecodeJSON(w, r, &req); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || !strings.Contains(req.Email, "@") {
		apiutil.WriteBadRequest(w, errors.New("name and a valid email are required"))
		return
	}
	if len(req.Password) < minPasswordLength {
		apiutil.WriteBadRequest(w, errors.New("password must be at least 8 characters"))
		return
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleClient
	}
	if role != domain.RoleClient && role != domain.RoleOwner {
		apiutil.WriteBadRequest(w, errors.New("role must be CLIENT or OWNER"))
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if result := limiter.CheckRegister(ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded("register", req.Email, ip, result.Reason)
		apiutil.WriteTooManyRequests(w, result.RetryAfter)
		return
	}

	phone, err := request.NormalizePhone(req.Phone, phoneRegion)
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	id, err := queries.CreateUser(r.Context(), domain.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	limiter.RecordRegister(ip)

	user, err := queries.GetUserByID(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	if err := CreateSession(w, id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("user_id", id).
		Str("role", string(role)).
		Msg("User registered")

	apiutil.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := apiutil.DecodeJSON(w, r, &req); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ip := ratelimit.GetClientIP(r, trustProxy)
	if result := limiter.CheckLogin(req.Email, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded("login", req.Email, ip, result.Reason)
		apiutil.WriteTooManyRequests(w, result.RetryAfter)
		return
	}

	user, err := queries.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		apiutil.WriteError(w, r, err)
		return
	}
	// A missing user and a wrong password share one code path and one
	// response, so the endpoint cannot be used to probe for emails.
	if err != nil || !VerifyPassword(user.PasswordHash, req.Password) {
		if lockedOut := limiter.RecordLoginFailure(req.Email, ip); lockedOut {
			log.Ctx(r.Context()).Warn().
				Str("email", ratelimit.SanitizeEmail(req.Email)).
				Msg("Login lockout triggered")
		}
		apiutil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	limiter.ResetLoginAttempts(req.Email)

	if err := CreateSession(w, user.ID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("User logged in")
	apiutil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// POST /api/v1/auth/logout
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/profile
func HandleProfile(w http.ResponseWriter, r *http.Request) {
	principal := apiutil.RequireUser(w, r)
	if principal == nil {
		return
	}

	user, err := queries.GetUserByID(r.Context(), principal.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type updateProfileRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	ImageURL        string `json:"imageUrl"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// PUT /api/v1/profile
func HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := apiutil.RequireUser(w, r)
	if principal == nil {
		return
	}

	var req updateProfileRequest
	if err := apiutil.DecodeJSON(w, r, &req); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apiutil.WriteBadRequest(w, errors.New("name is required"))
		return
	}

	phone, err := request.NormalizePhone(req.Phone, phoneRegion)
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	user, err := queries.GetUserByID(r.Context(), principal.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	newHash := ""
	if req.NewPassword != "" {
		if len(req.NewPassword) < minPasswordLength {
			apiutil.WriteBadRequest(w, errors.New("new password must be at least 8 characters"))
			return
		}
		if !VerifyPassword(user.PasswordHash, req.CurrentPassword) {
			apiutil.WriteError(w, r, domain.ErrForbidden)
			return
		}
		newHash, err = HashPassword(req.NewPassword)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
	}

	if err := queries.UpdateUserProfile(r.Context(), principal.ID, req.Name, phone, req.ImageURL, newHash); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	updated, err := queries.GetUserByID(r.Context(), principal.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-manager/middleware"
	"github.com/Dosada05/tournament-manager/services"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
	clock       clockwork.Clock
}

func NewAuthHandler(authService services.AuthService, jwtSecret string, clock clockwork.Clock) *AuthHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AuthHandler{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
		clock:       clock,
	}
}

// Login godoc
// @Summary Вход организатора
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.LoginInput true "Email и пароль"
// @Success 200 {object} map[string]string "JWT токен"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	organizer, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	now := h.clock.Now()
	claims := jwt.MapClaims{
		middleware.ClaimEmail: organizer.Email,
		middleware.ClaimRole:  middleware.RoleOrganizer,
		"exp":                 now.Add(tokenTTL).Unix(),
		"iat":                 now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token":      tokenString,
		"expires_at": now.Add(tokenTTL).UTC(),
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

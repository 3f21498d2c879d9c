package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"paylio/models"
	"paylio/services"
)

type AuthController struct {
	users  *services.UserService
	tokens *services.TokenService
}

type SignInRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Token struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthResponse struct {
	Token Token            `json:"token"`
	User  services.UserDTO `json:"user"`
}

func NewAuthController(users *services.UserService, tokens *services.TokenService) *AuthController {
	return &AuthController{
		users:  users,
		tokens: tokens,
	}
}

// SignIn обрабатывает вход пользователя по логину или email
func (c *AuthController) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	user, err := c.users.Authenticate(identifier, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c.respondWithToken(w, http.StatusOK, user)
}

// SignUp регистрирует пользователя и возвращает токен
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var form services.SignUpForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := c.users.Register(form)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c.respondWithToken(w, http.StatusCreated, user)
}

func (c *AuthController) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	tokenString, expires, err := c.tokens.Issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, status, AuthResponse{
		Token: Token{
			Token:     tokenString,
			Email:     user.Email,
			UserID:    user.ID,
			ExpiresAt: expires,
		},
		User: services.ToUserDTO(user),
	})
}

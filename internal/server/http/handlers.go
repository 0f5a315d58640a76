package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avard/authd/internal/errs"
	"github.com/avard/authd/internal/service"
)

type handlers struct {
	auth service.AuthService
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *handlers) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to api."})
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "Successfully registered."})
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, errs.ErrAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"message": "The user is already registered."})
	default:
		serverFault(c)
	}
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_in":    pair.ExpiresIn,
		})
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, errs.ErrInvalidCredentials):
		// same body for unknown identifier and wrong password
		c.JSON(http.StatusBadRequest, gin.H{"message": "The information you entered is incorrect."})
	case errors.Is(err, errs.ErrTokenIssue):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Failed to generate tokens."})
	default:
		serverFault(c)
	}
}

func (h *handlers) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"access_token": pair.AccessToken,
			"expires_in":   pair.ExpiresIn,
		})
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Refresh token is required."})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User not found."})
	case tokenRejected(err):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired refresh token."})
	case errors.Is(err, errs.ErrTokenIssue):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Failed to generate access token."})
	default:
		serverFault(c)
	}
}

// tokenRejected groups the token-invalid kinds; they share one opaque 401.
func tokenRejected(err error) bool {
	return errors.Is(err, errs.ErrTokenMalformed) ||
		errors.Is(err, errs.ErrTokenSignature) ||
		errors.Is(err, errs.ErrTokenExpired) ||
		errors.Is(err, errs.ErrTokenNotRecognized)
}

// serverFault hides internal fault detail from the caller.
func serverFault(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
}

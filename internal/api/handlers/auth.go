package handlers

import (
	"net/http"

	"relay-service/internal/auth"
	"relay-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	tokens *auth.TokenService
}

func NewAuthHandler(tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
}

type TokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// IssueToken signs a relay credential for the given identity.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Error:   "invalid request",
			Details: "username and userId are required",
		})
		return
	}

	token, err := h.tokens.Issue(req.UserID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Error: "failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:    token,
		Username: req.Username,
		UserID:   req.UserID,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ton-paylink/config"
	"github.com/yourusername/ton-paylink/middleware"
	"github.com/yourusername/ton-paylink/utils"
)

type AuthHandler struct {
	Cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Cfg: cfg,
	}
}

// ConnectWalletRequest is sent once the wallet app approved the connection
type ConnectWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// RefreshToken request body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Connect opens a session for a wallet address
func (h *AuthHandler) Connect(c *gin.Context) {
	var req ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidInput"})
		return
	}

	address, err := utils.CanonicalAddress(req.Address, h.Cfg.Testnet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address", "code": "InvalidAddress"})
		return
	}

	h.issueTokens(c, address)
}

// Refresh handles token refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate refresh token using the refresh secret
	claims, err := middleware.ParseToken(req.RefreshToken, h.Cfg.JWTRefreshSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token", "code": "InvalidToken"})
		return
	}

	address, err := utils.CanonicalAddress(claims.WalletAddress, h.Cfg.Testnet)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token", "code": "InvalidToken"})
		return
	}

	h.issueTokens(c, address)
}

func (h *AuthHandler) issueTokens(c *gin.Context, address string) {
	accessToken, err := middleware.GenerateToken(address, h.Cfg.JWTSecret, h.Cfg.AccessTokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	refreshToken, err := middleware.GenerateToken(address, h.Cfg.JWTRefreshSecret, h.Cfg.RefreshTokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":       address,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yourusername/ton-paylink/config"
	"github.com/yourusername/ton-paylink/models"
)

// walletKey is the gin context key holding the session's models.ConnectedWallet.
const walletKey = "wallet"

// Claims represents the JWT claims of a wallet session
type Claims struct {
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token for a connected wallet
func GenerateToken(walletAddress string, secret string, expiry time.Duration) (string, error) {
	expirationTime := time.Now().Add(expiry)
	claims := &Claims{
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   walletAddress,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates tokenString against secret and returns its claims
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JwtAuthMiddleware validates the JWT token and puts the session wallet in the context
func JwtAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1], cfg.JWTSecret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired", "code": "ExpiredToken"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "code": "InvalidToken"})
			}
			c.Abort()
			return
		}

		c.Set(walletKey, models.ConnectedWallet{Address: claims.WalletAddress})
		c.Next()
	}
}

// RequireWallet rejects requests whose session carries no wallet
func RequireWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		w, ok := WalletFromContext(c)
		if !ok || !w.Connected() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please connect your wallet first.", "code": "WalletNotConnected"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// WalletFromContext returns the wallet set by JwtAuthMiddleware
func WalletFromContext(c *gin.Context) (models.ConnectedWallet, bool) {
	v, exists := c.Get(walletKey)
	if !exists {
		return models.ConnectedWallet{}, false
	}
	w, ok := v.(models.ConnectedWallet)
	return w, ok
}

// SetWallet stores w in the context the same way JwtAuthMiddleware does
func SetWallet(c *gin.Context, w models.ConnectedWallet) {
	c.Set(walletKey, w)
}

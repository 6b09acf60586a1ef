package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/ton-paylink/config"
	"github.com/yourusername/ton-paylink/models"
)

const testWallet = "EQBx6tZZWa2Tbv6BvgcvegoOQxkRrVaBVwBOoW85nbP37_Go"

func TestJwtAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret: "test-secret",
	}

	validToken, _ := GenerateToken(testWallet, cfg.JWTSecret, 1*time.Hour)
	expiredToken, _ := GenerateToken(testWallet, cfg.JWTSecret, -1*time.Hour)
	foreignToken, _ := GenerateToken(testWallet, "other-secret", 1*time.Hour)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedWallet string
		expectedCode   string
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
			expectedWallet: testWallet,
		},
		{
			name:           "Missing Header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Invalid " + validToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + expiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "ExpiredToken",
		},
		{
			name:           "Wrong Secret",
			authHeader:     "Bearer " + foreignToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "InvalidToken",
		},
		{
			name:           "Invalid Token",
			authHeader:     "Bearer invalid.token.string",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "InvalidToken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(JwtAuthMiddleware(cfg))
			router.GET("/test", func(c *gin.Context) {
				w, _ := WalletFromContext(c)
				c.JSON(http.StatusOK, gin.H{"wallet": w.Address})
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedWallet != "" {
				assert.Contains(t, w.Body.String(), tt.expectedWallet)
			}
			if tt.expectedCode != "" {
				assert.Contains(t, w.Body.String(), tt.expectedCode)
			}
		})
	}
}

func TestRequireWallet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupContext   func(c *gin.Context)
		expectedStatus int
	}{
		{
			name: "Connected Wallet",
			setupContext: func(c *gin.Context) {
				SetWallet(c, models.ConnectedWallet{Address: testWallet})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Empty Wallet",
			setupContext: func(c *gin.Context) {
				SetWallet(c, models.ConnectedWallet{})
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "No Wallet In Context",
			setupContext: func(c *gin.Context) {
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				tt.setupContext(c)
				c.Next()
			})
			router.Use(RequireWallet())
			router.GET("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestLogger(logrus.NewEntry(log)))
	router.GET("/missing", func(c *gin.Context) {
		SetWallet(c, models.ConnectedWallet{Address: testWallet})
		c.Status(http.StatusNotFound)
	})

	req, _ := http.NewRequest(http.MethodGet, "/missing", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	line, _ := io.ReadAll(&buf)
	assert.Contains(t, string(line), `"status":404`)
	assert.Contains(t, string(line), `"level":"warning"`)
	assert.Contains(t, string(line), testWallet)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/ton-paylink/middleware"
	"github.com/yourusername/ton-paylink/models"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrInvalidInput, http.StatusBadRequest, "InvalidInput"},
	{models.ErrInvalidAddress, http.StatusBadRequest, "InvalidAddress"},
	{models.ErrMemoTooLarge, http.StatusBadRequest, "MemoTooLarge"},
	{models.ErrInvalidAmount, http.StatusBadRequest, "InvalidAmount"},
	{models.ErrPriceUnavailable, http.StatusServiceUnavailable, "PriceUnavailable"},
	{models.ErrTransactionRejected, http.StatusConflict, "TransactionRejected"},
	{models.ErrTransactionFailed, http.StatusBadGateway, "TransactionFailed"},
	{models.ErrCreationInProgress, http.StatusTooManyRequests, "CreationInProgress"},
	{models.ErrInvoiceNotFound, http.StatusNotFound, "NotFound"},
	{models.ErrNothingToExport, http.StatusNotFound, "NothingToExport"},
	{models.ErrStorageWriteFailed, http.StatusInternalServerError, "StorageWriteFailed"},
}

// errorStatus maps a domain error to its HTTP status and code.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "InternalError"
}

func respondError(c *gin.Context, err error, extra gin.H) {
	status, code := errorStatus(err)
	body := gin.H{"error": err.Error(), "code": code}
	if status == http.StatusInternalServerError {
		body["error"] = "An unexpected error occurred"
		captureError(c, err)
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// captureError records err on the request and reports it to sentry when enabled.
func captureError(c *gin.Context, err error) {
	c.Error(err)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			if w, ok := middleware.WalletFromContext(c); ok {
				scope.SetExtra("wallet", w.Address)
			}
			hub.CaptureException(err)
		})
	}
}

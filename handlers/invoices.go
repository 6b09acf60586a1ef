package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/ton-paylink/invoices"
	"github.com/yourusername/ton-paylink/middleware"
	"github.com/yourusername/ton-paylink/models"
)

type InvoiceHandler struct {
	creator   *invoices.Creator
	dashboard *invoices.Dashboard
	log       *logrus.Entry
}

func NewInvoiceHandler(creator *invoices.Creator, dashboard *invoices.Dashboard, log *logrus.Entry) *InvoiceHandler {
	return &InvoiceHandler{
		creator:   creator,
		dashboard: dashboard,
		log:       log,
	}
}

func (h *InvoiceHandler) notifications() *invoices.Notifications {
	return &invoices.Notifications{Forward: invoices.LogNotifier{Log: h.log}}
}

type CreateInvoiceRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidInput"})
		return
	}

	w, _ := middleware.WalletFromContext(c)
	notes := h.notifications()
	result, err := h.creator.Create(c.Request.Context(), w, invoices.CreateInvoiceRequest{
		AmountFiat:  req.Amount,
		Description: req.Description,
	}, notes)

	// The wallet already sent the transaction, so the link is still handed out.
	if result != nil && errors.Is(err, models.ErrStorageWriteFailed) {
		captureError(c, err)
		c.JSON(http.StatusCreated, gin.H{
			"invoice":       result.Invoice,
			"payment_link":  result.PaymentLink,
			"transaction":   result.Transaction,
			"warning":       err.Error(),
			"notifications": notes.Items(),
		})
		return
	}
	if err != nil {
		respondError(c, err, gin.H{"notifications": notes.Items()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invoice":       result.Invoice,
		"payment_link":  result.PaymentLink,
		"transaction":   result.Transaction,
		"notifications": notes.Items(),
	})
}

func (h *InvoiceHandler) CreationState(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	state, running := h.creator.InFlight(w.Address)
	c.JSON(http.StatusOK, gin.H{
		"state":       state.String(),
		"in_progress": running,
	})
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	list, err := h.dashboard.List(c.Request.Context(), w)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	inv, err := h.dashboard.Get(c.Request.Context(), w, c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	notes := h.notifications()
	if err := h.dashboard.Delete(c.Request.Context(), w, c.Param("id"), notes); err != nil {
		respondError(c, err, gin.H{"notifications": notes.Items()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id"), "notifications": notes.Items()})
}

func (h *InvoiceHandler) PaymentDetails(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	details, err := h.dashboard.PaymentDetails(c.Request.Context(), w, c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice":      details.Invoice,
		"amount_ton":   details.AmountToken,
		"estimated":    details.Estimated,
		"payment_link": details.PaymentLink,
		"qr_png":       base64.StdEncoding.EncodeToString(details.QRCode),
	})
}

func (h *InvoiceHandler) PaymentQR(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	details, err := h.dashboard.PaymentDetails(c.Request.Context(), w, c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.Data(http.StatusOK, "image/png", details.QRCode)
}

func (h *InvoiceHandler) ExportCSV(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	var buf bytes.Buffer
	notes := h.notifications()
	if err := h.dashboard.ExportCSV(c.Request.Context(), w, &buf, notes); err != nil {
		respondError(c, err, gin.H{"notifications": notes.Items()})
		return
	}

	c.Header("Content-Disposition", attachment("invoices.csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *InvoiceHandler) ExportPDF(c *gin.Context) {
	w, _ := middleware.WalletFromContext(c)
	id := c.Param("id")
	var buf bytes.Buffer
	if err := h.dashboard.ExportPDF(c.Request.Context(), w, id, &buf); err != nil {
		respondError(c, err, nil)
		return
	}

	c.Header("Content-Disposition", attachment(id+".pdf"))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

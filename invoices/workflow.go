package invoices

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/ton-paylink/models"
	"github.com/yourusername/ton-paylink/pricing"
	"github.com/yourusername/ton-paylink/utils"
	"github.com/yourusername/ton-paylink/wallet"
)

// memoType tags invoice memos so they can be told apart in wallet history.
const memoType = "TONPayLinkInvoice_v1"

// State is the stage a creation attempt has reached.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StatePriceFetch
	StateSigning
	StatePersisting
	StateLinkReady
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StatePriceFetch:
		return "price_fetch"
	case StateSigning:
		return "signing"
	case StatePersisting:
		return "persisting"
	case StateLinkReady:
		return "link_ready"
	}
	return "idle"
}

type InvoiceStore interface {
	Load(ctx context.Context, walletAddress string) ([]models.Invoice, error)
	Get(ctx context.Context, walletAddress, invoiceID string) (*models.Invoice, error)
	Append(ctx context.Context, walletAddress string, invoice models.Invoice) error
	Remove(ctx context.Context, walletAddress, invoiceID string) error
}

type WorkflowConfig struct {
	DescriptionMaxLength int
	MemoMaxBytes         int
	SignAmountTON        string
	SignValidity         time.Duration
	Testnet              bool
}

type CreateInvoiceRequest struct {
	AmountFiat  decimal.Decimal
	Description string
}

type CreateInvoiceResult struct {
	Invoice     models.Invoice            `json:"invoice"`
	PaymentLink string                    `json:"payment_link"`
	Transaction *models.SignedTransaction `json:"transaction"`
}

type attempt struct {
	state atomic.Int32
}

func (a *attempt) advance(s State) {
	a.state.Store(int32(s))
}

// Creator runs invoice creation: validate, price, sign, persist, link.
type Creator struct {
	prices         pricing.PriceClientInterface
	signer         wallet.Signer
	store          InvoiceStore
	links          LinkBuilder
	cfg            WorkflowConfig
	signAmountNano string
	validate       *validator.Validate
	log            *logrus.Entry

	now   func() time.Time
	newID func(time.Time) string

	inflight sync.Map // wallet address -> *attempt
}

func NewCreator(prices pricing.PriceClientInterface, signer wallet.Signer, store InvoiceStore, links LinkBuilder, cfg WorkflowConfig, log *logrus.Entry) (*Creator, error) {
	signAmount, err := decimal.NewFromString(cfg.SignAmountTON)
	if err != nil {
		return nil, fmt.Errorf("invalid sign amount %q: %w", cfg.SignAmountTON, err)
	}
	nano, err := utils.ToNano(signAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid sign amount %q: %w", cfg.SignAmountTON, err)
	}

	return &Creator{
		prices:         prices,
		signer:         signer,
		store:          store,
		links:          links,
		cfg:            cfg,
		signAmountNano: nano.String(),
		validate:       validator.New(),
		log:            log.WithField("component", "invoice_workflow"),
		now:            time.Now,
		newID:          newInvoiceID,
	}, nil
}

func newInvoiceID(t time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("inv_%d_%s", t.UnixMilli(), hex.EncodeToString(u[:4]))
}

// InFlight reports the state of the running attempt for a wallet, if any.
func (c *Creator) InFlight(walletAddress string) (State, bool) {
	v, ok := c.inflight.Load(c.flightKey(walletAddress))
	if !ok {
		return StateIdle, false
	}
	return State(v.(*attempt).state.Load()), true
}

// flightKey maps every encoding of an account to one guard entry. Unparsable
// addresses are kept as given; validation rejects them later.
func (c *Creator) flightKey(walletAddress string) string {
	if canonical, err := utils.CanonicalAddress(walletAddress, c.cfg.Testnet); err == nil {
		return canonical
	}
	return walletAddress
}

// Create runs one creation attempt. Only one attempt per wallet runs at a time.
//
// When the wallet already sent the transaction but the invoice could not be
// stored, Create returns the result together with an error wrapping
// models.ErrStorageWriteFailed.
func (c *Creator) Create(ctx context.Context, w models.ConnectedWallet, req CreateInvoiceRequest, n Notifier) (*CreateInvoiceResult, error) {
	a := &attempt{}
	if w.Connected() {
		key := c.flightKey(w.Address)
		if _, busy := c.inflight.LoadOrStore(key, a); busy {
			notify(n, LevelError, "An invoice is already being created. Please wait.")
			return nil, models.ErrCreationInProgress
		}
		defer c.inflight.Delete(key)
	}

	log := c.log.WithField("wallet", w.Address)
	result, err := c.run(ctx, a, w, req, log)
	switch {
	case err == nil:
		notify(n, LevelSuccess, "Invoice Recorded & Link Ready!")
	case errors.Is(err, models.ErrStorageWriteFailed):
		log.WithError(err).Error("transaction sent but invoice was not saved")
		notify(n, LevelWarning, "The transaction was sent, but the invoice could not be saved locally.")
	default:
		a.advance(StateIdle)
		log.WithError(err).Warn("invoice creation failed")
		notify(n, LevelError, failureMessage(err))
	}
	return result, err
}

func (c *Creator) run(ctx context.Context, a *attempt, w models.ConnectedWallet, req CreateInvoiceRequest, log *logrus.Entry) (*CreateInvoiceResult, error) {
	a.advance(StateValidating)
	recipient, description, err := c.validateRequest(w, req)
	if err != nil {
		return nil, err
	}

	a.advance(StatePriceFetch)
	rate, err := c.prices.FiatPerToken(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrPriceUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
		}
		return nil, err
	}

	amountToken := req.AmountFiat.DivRound(rate, utils.NanoDecimals)
	if !amountToken.IsPositive() {
		return nil, fmt.Errorf("%w: %s at %s per TON is below one nanoton", models.ErrInvalidAmount, req.AmountFiat, rate)
	}

	memo, err := encodeMemo(req.AmountFiat, amountToken, description)
	if err != nil {
		return nil, err
	}
	if len(memo) > c.cfg.MemoMaxBytes {
		return nil, fmt.Errorf("%w: memo is %d bytes, at most %d fit", models.ErrMemoTooLarge, len(memo), c.cfg.MemoMaxBytes)
	}
	payload, err := utils.BuildCommentPayload(memo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMemoTooLarge, err)
	}

	now := c.now()
	tx := models.TransactionRequest{
		ValidUntil: now.Add(c.cfg.SignValidity).Unix(),
		Messages: []models.TransactionMessage{
			{Address: recipient, Amount: c.signAmountNano, Payload: payload},
		},
	}

	a.advance(StateSigning)
	log.WithFields(logrus.Fields{"rate": rate.String(), "amount_ton": amountToken.String()}).Info("requesting wallet signature")
	signed, err := c.signer.SendTransaction(ctx, models.ConnectedWallet{Address: recipient}, tx)
	if err != nil {
		if !errors.Is(err, models.ErrTransactionRejected) && !errors.Is(err, models.ErrTransactionFailed) {
			err = fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
		}
		return nil, err
	}

	a.advance(StatePersisting)
	created := c.now()
	invoice := models.Invoice{
		ID:          c.newID(created),
		AmountFiat:  req.AmountFiat,
		AmountToken: amountToken,
		Description: description,
		Status:      models.InvoiceStatusPending,
		Timestamp:   created.UnixMilli(),
	}
	storeErr := c.store.Append(ctx, recipient, invoice)
	if storeErr != nil && !errors.Is(storeErr, models.ErrStorageWriteFailed) {
		storeErr = fmt.Errorf("%w: %w", models.ErrStorageWriteFailed, storeErr)
	}

	a.advance(StateLinkReady)
	link, err := c.links.InvoiceLink(recipient, invoice)
	if err != nil {
		return nil, errors.Join(storeErr, err)
	}
	log.WithFields(logrus.Fields{"invoice": invoice.ID, "link": link}).Info("payment link ready")

	return &CreateInvoiceResult{Invoice: invoice, PaymentLink: link, Transaction: signed}, storeErr
}

func (c *Creator) validateRequest(w models.ConnectedWallet, req CreateInvoiceRequest) (string, string, error) {
	if !w.Connected() {
		return "", "", fmt.Errorf("%w: no wallet connected", models.ErrInvalidInput)
	}
	recipient, err := utils.CanonicalAddress(w.Address, c.cfg.Testnet)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	if !req.AmountFiat.IsPositive() {
		return "", "", fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}

	description := strings.TrimSpace(req.Description)
	rule := "required,max=" + strconv.Itoa(c.cfg.DescriptionMaxLength)
	if err := c.validate.Var(description, rule); err != nil {
		return "", "", fmt.Errorf("%w: description must be 1 to %d characters", models.ErrInvalidInput, c.cfg.DescriptionMaxLength)
	}
	return recipient, description, nil
}

type invoiceMemo struct {
	Type        string      `json:"t"`
	AmountFiat  json.Number `json:"usd"`
	AmountToken json.Number `json:"ton"`
	Description string      `json:"d"`
	Status      string      `json:"s"`
}

func encodeMemo(amountFiat, amountToken decimal.Decimal, description string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(invoiceMemo{
		Type:        memoType,
		AmountFiat:  json.Number(amountFiat.String()),
		AmountToken: json.Number(amountToken.String()),
		Description: description,
		Status:      "pending",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode memo: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "Please enter a valid amount (in USD) and description."
	case errors.Is(err, models.ErrPriceUnavailable):
		return "Live TON price is unavailable. Please try again."
	case errors.Is(err, models.ErrInvalidAmount):
		return "The amount is too small to be paid in TON."
	case errors.Is(err, models.ErrMemoTooLarge):
		return "Description is too long for the on-chain memo. Please shorten it."
	case errors.Is(err, models.ErrTransactionRejected):
		return "Transaction rejected in wallet."
	case errors.Is(err, models.ErrTransactionFailed):
		return "Transaction failed. Please try again."
	}
	return "An unexpected error occurred."
}

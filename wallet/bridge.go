package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/ton-paylink/models"
)

// BridgeSigner relays transaction requests to a wallet-connect bridge service
// that holds the user's wallet session and waits for the wallet's answer.
type BridgeSigner struct {
	httpClient *http.Client
	baseURL    string
	log        *logrus.Entry
}

func NewBridgeSigner(baseURL string, log *logrus.Entry) *BridgeSigner {
	return &BridgeSigner{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log.WithField("component", "bridge_signer"),
	}
}

type bridgeRequest struct {
	Wallet      string                    `json:"wallet"`
	Transaction models.TransactionRequest `json:"transaction"`
}

type bridgeResponse struct {
	BOC   string `json:"boc"`
	Hash  string `json:"hash"`
	Error string `json:"error"`
}

func (b *BridgeSigner) SendTransaction(ctx context.Context, wallet models.ConnectedWallet, tx models.TransactionRequest) (*models.SignedTransaction, error) {
	// the wallet cannot accept the request after validUntil anyway
	ctx, cancel := context.WithDeadline(ctx, time.Unix(tx.ValidUntil, 0))
	defer cancel()

	body, err := json.Marshal(bridgeRequest{Wallet: wallet.Address, Transaction: tx})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	b.log.WithField("wallet", wallet.Address).Info("sending transaction request to wallet")
	resp, err := b.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: request expired before the wallet answered", models.ErrTransactionFailed)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
	}
	defer resp.Body.Close()

	var out bridgeResponse
	// an empty or non-JSON body still has a meaningful status code
	_ = json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusConflict || isRejection(out.Error) {
		return nil, fmt.Errorf("%w: %s", models.ErrTransactionRejected, out.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bridge returned status %d %s", models.ErrTransactionFailed, resp.StatusCode, out.Error)
	}
	if out.Error != "" || out.BOC == "" {
		return nil, fmt.Errorf("%w: wallet returned no signed transaction %s", models.ErrTransactionFailed, out.Error)
	}

	return &models.SignedTransaction{BOC: out.BOC, Hash: out.Hash}, nil
}

func isRejection(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "rejected") || strings.Contains(msg, "userrejectserror")
}

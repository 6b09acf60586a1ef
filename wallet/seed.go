package wallet

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	tonwallet "github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"github.com/yourusername/ton-paylink/models"
	"github.com/yourusername/ton-paylink/utils"
)

// SeedSigner signs with a v4r2 wallet restored from a mnemonic and sends through
// lite servers. It only serves the one wallet it holds the key for; it exists for
// headless setups and test networks where no wallet app is in the loop.
type SeedSigner struct {
	wallet  *tonwallet.Wallet
	address string
	testnet bool
	log     *logrus.Entry
}

func NewSeedSigner(ctx context.Context, liteConfigURL, mnemonic string, testnet bool, log *logrus.Entry) (*SeedSigner, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, liteConfigURL); err != nil {
		return nil, fmt.Errorf("failed to connect to lite servers: %w", err)
	}
	api := ton.NewAPIClient(pool).WithRetry()

	w, err := tonwallet.FromSeed(api, strings.Fields(mnemonic), tonwallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("failed to restore wallet from seed: %w", err)
	}

	addr, err := utils.CanonicalAddress(w.WalletAddress().String(), testnet)
	if err != nil {
		return nil, err
	}

	return &SeedSigner{wallet: w, address: addr, testnet: testnet, log: log.WithField("component", "seed_signer")}, nil
}

// Address is the canonical address of the held wallet.
func (s *SeedSigner) Address() string {
	return s.address
}

func (s *SeedSigner) SendTransaction(ctx context.Context, wallet models.ConnectedWallet, tx models.TransactionRequest) (*models.SignedTransaction, error) {
	requested, err := utils.CanonicalAddress(wallet.Address, s.testnet)
	if err != nil || requested != s.address {
		return nil, fmt.Errorf("%w: signer does not hold the key for %s", models.ErrTransactionRejected, wallet.Address)
	}

	deadline := time.Unix(tx.ValidUntil, 0)
	if time.Now().After(deadline) {
		return nil, fmt.Errorf("%w: request expired", models.ErrTransactionFailed)
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	messages := make([]*tonwallet.Message, 0, len(tx.Messages))
	for _, m := range tx.Messages {
		msg, err := toWalletMessage(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
		}
		messages = append(messages, msg)
	}

	sent, _, err := s.wallet.SendManyWaitTransaction(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
	}

	hash := hex.EncodeToString(sent.Hash)
	s.log.WithField("hash", hash).Info("transaction sent")
	return &models.SignedTransaction{Hash: hash}, nil
}

func toWalletMessage(m models.TransactionMessage) (*tonwallet.Message, error) {
	dst, err := address.ParseAddr(m.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid destination %q: %w", m.Address, err)
	}
	amount, err := tlb.FromNanoTONStr(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", m.Amount, err)
	}

	var body *cell.Cell
	if m.Payload != "" {
		boc, err := base64.StdEncoding.DecodeString(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("payload is not base64: %w", err)
		}
		if body, err = cell.FromBOC(boc); err != nil {
			return nil, fmt.Errorf("payload is not a BOC: %w", err)
		}
	}
	return tonwallet.SimpleMessage(dst, amount, body), nil
}

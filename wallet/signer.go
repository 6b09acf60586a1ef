package wallet

import (
	"context"

	"github.com/yourusername/ton-paylink/models"
)

// Signer asks the connected wallet to sign and send a transaction.
//
// Implementations return errors wrapping models.ErrTransactionRejected when the
// user declines, and models.ErrTransactionFailed for anything else.
type Signer interface {
	SendTransaction(ctx context.Context, wallet models.ConnectedWallet, tx models.TransactionRequest) (*models.SignedTransaction, error)
}

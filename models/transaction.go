package models

// ConnectedWallet identifies the wallet a request acts for. Address is always the
// canonical user-friendly form.
type ConnectedWallet struct {
	Address string `json:"address"`
}

func (w ConnectedWallet) Connected() bool {
	return w.Address != ""
}

// TransactionRequest is what gets handed to the wallet for signing.
type TransactionRequest struct {
	ValidUntil int64                `json:"validUntil"` // epoch seconds
	Messages   []TransactionMessage `json:"messages"`
}

type TransactionMessage struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`  // nanotons
	Payload string `json:"payload"` // base64 BOC
}

// SignedTransaction is the wallet's answer to a TransactionRequest.
type SignedTransaction struct {
	BOC  string `json:"boc"`
	Hash string `json:"hash,omitempty"`
}

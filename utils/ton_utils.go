package utils

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"github.com/yourusername/ton-paylink/models"
)

// NanoDecimals is the number of fractional digits of one TON.
const NanoDecimals = 9

// commentOpcode prefixes a plain text comment in a message body.
const commentOpcode = 0

// CanonicalAddress normalises any user-friendly or raw (wc:hex) address into the
// bounceable, url-safe user-friendly form. Two encodings of the same account
// always produce the same string.
func CanonicalAddress(raw string, testnet bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty address", models.ErrInvalidAddress)
	}

	var (
		addr *address.Address
		err  error
	)
	if strings.Contains(raw, ":") {
		addr, err = address.ParseRawAddr(raw)
	} else {
		// friendly addresses show up in both base64 alphabets
		raw = strings.NewReplacer("+", "-", "/", "_").Replace(raw)
		addr, err = address.ParseAddr(raw)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidAddress, err)
	}

	addr.SetBounce(true)
	addr.SetTestnetOnly(testnet)
	return addr.String(), nil
}

// ToNano converts a TON amount into nanotons. Digits past the ninth fractional
// place are truncated.
func ToNano(amount decimal.Decimal) (*big.Int, error) {
	truncated := amount.Truncate(NanoDecimals)
	if !truncated.IsPositive() {
		return nil, fmt.Errorf("%w: %s TON is not a positive nanoton amount", models.ErrInvalidAmount, amount.String())
	}

	coins, err := tlb.FromTON(truncated.StringFixed(NanoDecimals))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidAmount, err)
	}
	return coins.Nano(), nil
}

// TruncateReference cuts a reference to at most max characters. A max of zero
// or less leaves the reference untouched.
func TruncateReference(ref string, max int) string {
	if max <= 0 {
		return ref
	}
	runes := []rune(ref)
	if len(runes) <= max {
		return ref
	}
	return string(runes[:max])
}

// BuildPaymentLink returns a wallet deep link of the form
// scheme://transfer/<address>?amount=<nano>&text=<reference>.
func BuildPaymentLink(scheme, recipient string, amount decimal.Decimal, reference string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("%w: empty recipient", models.ErrInvalidAddress)
	}
	nano, err := ToNano(amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://transfer/%s?amount=%s&text=%s", scheme, recipient, nano.String(), url.QueryEscape(reference)), nil
}

// BuildCommentPayload encodes text as a comment message body and returns the
// base64 BOC expected in a wallet transaction request.
func BuildCommentPayload(text string) (string, error) {
	body := cell.BeginCell()
	if err := body.StoreUInt(commentOpcode, 32); err != nil {
		return "", fmt.Errorf("failed to store comment opcode: %w", err)
	}
	if err := body.StoreStringSnake(text); err != nil {
		return "", fmt.Errorf("failed to store comment text: %w", err)
	}
	return base64.StdEncoding.EncodeToString(body.EndCell().ToBOC()), nil
}

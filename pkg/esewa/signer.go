// Package esewa implements the gateway's signature-based redirect protocol:
// the server signs a canonical field string with a shared HMAC-SHA256 secret
// and the client is redirected to the gateway carrying the signed field set.
package esewa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/epharm-labs/epharm-backend/pkg/config"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
)

// SignedFieldNames is the fixed field list the gateway expects in signatures.
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

// RequestFields is the signed field set handed to the client for redirect.
type RequestFields struct {
	Amount                string `json:"amount"`
	TaxAmount             string `json:"tax_amount"`
	TotalAmount           string `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	ProductServiceCharge  string `json:"product_service_charge"`
	ProductDeliveryCharge string `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
}

// CallbackPayload is the decoded body the gateway posts (or base64-encodes
// into the redirect query) after a transaction settles.
type CallbackPayload struct {
	TransactionUUID  string `json:"transaction_uuid"`
	Status           string `json:"status"`
	TransactionCode  string `json:"transaction_code"`
	TotalAmount      string `json:"total_amount"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// Signer produces and verifies gateway signatures under the shared secret.
type Signer struct {
	productCode string
	secret      []byte
	successURL  string
	failureURL  string
}

// NewSigner builds a signer from configuration. The secret is mandatory.
func NewSigner(cfg config.EsewaConfig) (*Signer, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("esewa secret key is required")
	}
	if strings.TrimSpace(cfg.ProductCode) == "" {
		return nil, fmt.Errorf("esewa product code is required")
	}
	return &Signer{
		productCode: cfg.ProductCode,
		secret:      []byte(cfg.SecretKey),
		successURL:  cfg.SuccessURL,
		failureURL:  cfg.FailureURL,
	}, nil
}

// ProductCode returns the configured merchant code.
func (s *Signer) ProductCode() string {
	return s.productCode
}

// CanonicalMessage renders the exact string the gateway signs.
func (s *Signer) CanonicalMessage(totalAmount, transactionUUID string) string {
	return fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", totalAmount, transactionUUID, s.productCode)
}

// Sign returns the base64 HMAC-SHA256 digest of the canonical message.
func (s *Signer) Sign(totalAmount, transactionUUID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(s.CanonicalMessage(totalAmount, transactionUUID)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// BuildRequest assembles the full signed field set for a redirect payment.
func (s *Signer) BuildRequest(amount, taxAmount decimal.Decimal, transactionUUID string) RequestFields {
	total := amount.Add(taxAmount)
	totalStr := formatAmount(total)
	return RequestFields{
		Amount:                formatAmount(amount),
		TaxAmount:             formatAmount(taxAmount),
		TotalAmount:           totalStr,
		TransactionUUID:       transactionUUID,
		ProductCode:           s.productCode,
		ProductServiceCharge:  "0",
		ProductDeliveryCharge: "0",
		SuccessURL:            s.successURL,
		FailureURL:            s.failureURL,
		SignedFieldNames:      SignedFieldNames,
		Signature:             s.Sign(totalStr, transactionUUID),
	}
}

// VerifyCallback recomputes the signature over the payload's signed fields
// and compares in constant time. Payloads without a signature pass; gateways
// only sign the body on the redirect variant.
func (s *Signer) VerifyCallback(payload CallbackPayload) error {
	if payload.Signature == "" {
		return nil
	}
	expected := s.Sign(payload.TotalAmount, payload.TransactionUUID)
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return pkgerrors.New(pkgerrors.CodeSignature, "callback signature mismatch")
	}
	return nil
}

// formatAmount renders a decimal the way the gateway expects: no trailing
// zeros beyond the minor unit, no exponent.
func formatAmount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}

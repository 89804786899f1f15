package phonepe

import "encoding/json"

// Provider lifecycle states reported in status responses and webhooks.
const (
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StateExpired   = "EXPIRED"
	StateDeclined  = "DECLINED"
	StatePending   = "PENDING"
)

// Provider response codes.
const (
	CodeSuccess        = "SUCCESS"
	CodePaymentSuccess = "PAYMENT_SUCCESS"
	CodePaymentError   = "PAYMENT_ERROR"
	CodePaymentPending = "PAYMENT_PENDING"
)

// payRequest is the payload signed and base64-wrapped into the pay call.
type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type payRequestEnvelope struct {
	Request string `json:"request"`
}

// InitiateResponse is the typed shape of the provider's pay response. The
// nested redirect URL is the only field the caller needs; its absence on a
// "successful" response is a provider contract violation.
type InitiateResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			Type         string `json:"type"`
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

func (r *InitiateResponse) redirectURL() string {
	return r.Data.InstrumentResponse.RedirectInfo.URL
}

// StatusResponse is the typed shape of the provider's status response.
type StatusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int64  `json:"amount"`
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
	} `json:"data"`
}

// ProviderStatus is the provider's view of a payment, as consumed by
// reconciliation. Raw carries the full response body for the audit column.
type ProviderStatus struct {
	MerchantTransactionID string
	Code                  string
	State                 string
	Raw                   json.RawMessage
}

// WebhookPayload is the provider-shaped webhook body. MerchantTransactionID is
// mandatory; a payload without it is rejected before any lookup.
type WebhookPayload struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int64  `json:"amount"`
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
	} `json:"data"`
}

package billing

// PaymentCallback is the payload of the hosted payment iframe's success
// callback, relayed by the browser.
type PaymentCallback struct {
	Success bool   `json:"success"`
	RefID   string `json:"refId,omitempty"`
}

// Error codes sent by the hosted payment iframe's field error callback.
const (
	PaymentFieldRequired = "001"
	PaymentFieldInvalid  = "002"
)

// FieldErrorMessage is forwarded back into the iframe's own error channel.
type FieldErrorMessage struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var paymentFieldLabels = map[string]string{
	"creditCardNumber":          "card number",
	"cardSecurityCode":          "security code",
	"creditCardExpirationMonth": "expiration month",
	"creditCardExpirationYear":  "expiration year",
	"creditCardHolderName":      "cardholder name",
	"creditCardType":            "card type",
}

// PaymentFieldError builds the message shown inside the iframe for a field
// error. Code 001 means the field is empty; every other code is treated as an
// invalid format.
func PaymentFieldError(key, code string) FieldErrorMessage {
	label, ok := paymentFieldLabels[key]
	if !ok {
		label = "value"
	}

	msg := "Please enter a valid " + label
	if code == PaymentFieldRequired {
		msg = "Please enter the " + label
	}
	return FieldErrorMessage{Key: key, Code: code, Message: msg}
}

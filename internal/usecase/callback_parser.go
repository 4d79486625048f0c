package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
)

// field aliases used by the gateway dialects, in lookup order
var (
	referenceAliases     = []string{"reference", "merchRef", "merchantReference", "ref"}
	transactionIDAliases = []string{"transactionId", "id", "transaction_id"}
	statusAliases        = []string{"status", "paymentStatus", "state"}
	amountAliases        = []string{"amount", "value", "total"}
)

// envelopeKey is the nested dialect: {"data": {...}}
const envelopeKey = "data"

// statusSignals is the allow-list of gateway status words
var statusSignals = map[string]Signal{
	"accepted":    SignalAccepted,
	"success":     SignalAccepted,
	"successful":  SignalAccepted,
	"paid":        SignalAccepted,
	"completed":   SignalAccepted,
	"complete":    SignalAccepted,
	"approved":    SignalAccepted,
	"confirmed":   SignalAccepted,
	"settled":     SignalAccepted,
	"declined":    SignalDeclined,
	"rejected":    SignalDeclined,
	"failed":      SignalDeclined,
	"failure":     SignalDeclined,
	"refused":     SignalDeclined,
	"denied":      SignalDeclined,
	"error":       SignalDeclined,
	"cancelled":   SignalCancelled,
	"canceled":    SignalCancelled,
	"aborted":     SignalCancelled,
	"expired":     SignalCancelled,
	"voided":      SignalCancelled,
	"processing":  SignalProcessing,
	"pending":     SignalProcessing,
	"in_progress": SignalProcessing,
	"inprogress":  SignalProcessing,
	"waiting":     SignalProcessing,
}

// ParsedCallback holds the fields extracted from a webhook body
type ParsedCallback struct {
	Reference     string
	TransactionID string
	Status        string
	Amount        decimal.NullDecimal
	Signal        Signal
}

// MapStatus maps a gateway status word to a signal. Unknown words map to
// SignalNoOp.
func MapStatus(raw string) Signal {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if signal, ok := statusSignals[key]; ok {
		return signal
	}
	return SignalNoOp
}

// ParseCallback extracts reference, transaction id, status and amount from a
// JSON or form-encoded body.
func ParseCallback(contentType string, body []byte) (*ParsedCallback, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &domainErrors.MalformedCallbackError{Reason: "empty body"}
	}

	var (
		fields map[string]string
		err    error
	)
	switch {
	case strings.Contains(contentType, "json"):
		fields, err = jsonFields(trimmed)
	case strings.Contains(contentType, "x-www-form-urlencoded"):
		fields, err = formFields(trimmed)
	case trimmed[0] == '{':
		fields, err = jsonFields(trimmed)
	default:
		fields, err = formFields(trimmed)
	}
	if err != nil {
		return nil, err
	}

	parsed := &ParsedCallback{
		Reference:     lookup(fields, referenceAliases),
		TransactionID: lookup(fields, transactionIDAliases),
		Status:        lookup(fields, statusAliases),
	}
	if parsed.Reference == "" {
		return parsed, &domainErrors.MalformedCallbackError{Reason: "no payment reference"}
	}
	if parsed.Status == "" {
		return parsed, &domainErrors.MalformedCallbackError{Reason: "no payment status"}
	}
	if raw := lookup(fields, amountAliases); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return parsed, &domainErrors.MalformedCallbackError{Reason: "invalid amount " + strconv.Quote(raw), Cause: err}
		}
		parsed.Amount = decimal.NewNullDecimal(amount)
	}
	parsed.Signal = MapStatus(parsed.Status)
	return parsed, nil
}

func jsonFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, &domainErrors.MalformedCallbackError{Reason: "invalid JSON body", Cause: err}
	}

	fields := flatten(doc)
	// the envelope only fills what the top level does not carry
	if inner, ok := doc[envelopeKey].(map[string]interface{}); ok {
		for k, v := range flatten(inner) {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}
	return fields, nil
}

func formFields(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, &domainErrors.MalformedCallbackError{Reason: "invalid form body", Cause: err}
	}
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}

// flatten keeps scalar values as strings
func flatten(doc map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = strconv.FormatBool(val)
		case float64:
			fields[k] = fmt.Sprintf("%v", val)
		}
	}
	return fields
}

func lookup(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			return v
		}
	}
	return ""
}

package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// DonationPayload is the JSON accepted by the webhook and the AMQP source.
// Amount is in major units and may be a number or a string.
type DonationPayload struct {
	Username string      `json:"username"`
	Platform string      `json:"platform"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Message  string      `json:"message"`
}

// Donation converts the payload, parsing the amount.
func (p DonationPayload) Donation() (Donation, error) {
	amount := p.Amount.String()
	if amount == "" {
		amount = "0"
	}
	minor, err := ParseAmount(amount)
	if err != nil {
		return Donation{}, fmt.Errorf("%w: %v", domain.ErrInvalidDonation, err)
	}
	return Donation{
		Username:    p.Username,
		Platform:    p.Platform,
		AmountMinor: minor,
		Currency:    p.Currency,
		Message:     p.Message,
	}, nil
}

// DecodeDonations accepts either a single DonationPayload or a Streamlabs
// socket event ({"type": ..., "message": [...]}).
func DecodeDonations(body []byte) ([]Donation, error) {
	var probe struct {
		Type    string          `json:"type"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDonation, err)
	}
	if probe.Type != "" && bytes.HasPrefix(bytes.TrimSpace(probe.Message), []byte("[")) {
		return decodeStreamlabs(probe.Type, probe.Message)
	}

	var payload DonationPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDonation, err)
	}
	d, err := payload.Donation()
	if err != nil {
		return nil, err
	}
	return []Donation{d}, nil
}

var streamlabsSupport = map[string]bool{
	"subscription": true, "resub": true, "gift_sub": true, "masssubgift": true,
	"bits": true, "superchat": true, "superstickers": true, "tiktok_gift": true, "merch": true,
}

func decodeStreamlabs(eventType string, raw json.RawMessage) ([]Donation, error) {
	var messages []map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&messages); err != nil {
		return nil, fmt.Errorf("%w: streamlabs message: %v", domain.ErrInvalidDonation, err)
	}

	kind := strings.ToLower(eventType)
	if kind != "donation" && kind != "tip" && !streamlabsSupport[kind] {
		return nil, nil
	}

	out := make([]Donation, 0, len(messages))
	for _, m := range messages {
		var amount string
		if kind == "donation" || kind == "tip" {
			amount = str(m, "amount")
			if amount == "" {
				amount = "0"
			}
		} else {
			amount = streamlabsAmount(kind, m)
		}
		minor, err := ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: streamlabs %s: %v", domain.ErrInvalidDonation, kind, err)
		}
		out = append(out, Donation{
			Username:    first(str(m, "name"), str(m, "display_name"), str(m, "user_name")),
			Platform:    capitalize(first(str(m, "platform"), str(m, "channel"), defaultStreamlabsPlatform(kind))),
			AmountMinor: minor,
			Currency:    first(str(m, "currency"), str(m, "currency_code"), "EUR"),
			Message:     first(str(m, "message"), str(m, "body")),
		})
	}
	return out, nil
}

func defaultStreamlabsPlatform(kind string) string {
	if kind == "donation" || kind == "tip" {
		return "Streamlabs"
	}
	return "Twitch"
}

// streamlabsAmount derives a value for events that carry no money amount.
func streamlabsAmount(kind string, m map[string]any) string {
	if v := str(m, "amount"); v != "" {
		return v
	}
	switch kind {
	case "subscription", "resub":
		return first(str(m, "months"), str(m, "streak_months"), "1")
	case "gift_sub", "masssubgift":
		return first(str(m, "count"), str(m, "mass_gift_count"), "1")
	case "bits":
		return first(str(m, "bits"), "0")
	case "tiktok_gift":
		repeat, cost := integer(m, "repeat_count", 1), integer(m, "cost", 1)
		return fmt.Sprint(repeat * cost)
	case "superchat", "superstickers":
		return first(str(m, "displayString"), "1")
	case "merch":
		return first(str(m, "total"), "1")
	}
	return "1"
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func integer(m map[string]any, key string, fallback int64) int64 {
	if n, ok := m[key].(json.Number); ok {
		if v, err := n.Int64(); err == nil {
			return v
		}
	}
	return fallback
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

package domain

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Kind is the closed set of dispatchable notification kinds. It is
// deliberately disjoint from the feed's notification types: this is the
// vocabulary of the outbound bot relay.
type Kind string

const (
	KindNewAppointment       Kind = "new_appointment"
	KindAppointmentConfirmed Kind = "appointment_confirmed"
	KindAppointmentCancelled Kind = "appointment_cancelled"
	KindAppointmentReminder  Kind = "appointment_reminder"
)

var ErrUnknownKind = errors.New("unknown notification kind")

// Field is an optional payload value that may arrive as a JSON string or
// number. Absent fields render as the empty string.
type Field string

func (f *Field) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = Field(n.String())
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	return errors.New("field must be a string or number")
}

func (f Field) String() string { return string(f) }

// Payload is the data bag a template is rendered against. Every field is
// optional; missing ones leave a blank in the rendered text.
type Payload struct {
	CustomerName Field `json:"customerName"`
	BusinessName Field `json:"businessName"`
	ServiceName  Field `json:"serviceName"`
	Date         Field `json:"date"`
	Time         Field `json:"time"`
	Price        Field `json:"price"`
}

// Request is the dispatcher's input: which template, which recipient,
// which values.
type Request struct {
	Kind   Kind    `json:"type" validate:"required"`
	ChatID string  `json:"chatId" validate:"required"`
	Data   Payload `json:"data"`
}

// FormatPrice renders a price field with a currency suffix, or nothing
// when the field is absent.
func FormatPrice(f Field) string {
	if f == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(string(f), 64); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64) + " ₪"
	}
	return string(f)
}

package application

import (
	"fmt"

	"github.com/ishflow/ishflow-backend/internal/modules/dispatch/domain"
)

// Render produces the Telegram-Markdown message body for a kind. One
// fixed layout per kind; absent payload fields render blank. The kind
// set is closed: anything else is ErrUnknownKind, never a silent drop.
func Render(kind domain.Kind, data domain.Payload) (string, error) {
	switch kind {
	case domain.KindNewAppointment:
		return fmt.Sprintf(
			"🔔 *New appointment!*\n\n"+
				"👤 Customer: %s\n"+
				"💈 Service: %s\n"+
				"📅 Date: %s\n"+
				"🕐 Time: %s\n"+
				"💰 Price: %s",
			data.CustomerName, data.ServiceName, data.Date, data.Time,
			domain.FormatPrice(data.Price),
		), nil
	case domain.KindAppointmentConfirmed:
		return fmt.Sprintf(
			"✅ *Appointment confirmed*\n\n"+
				"🏢 %s\n"+
				"💈 Service: %s\n"+
				"📅 %s at %s",
			data.BusinessName, data.ServiceName, data.Date, data.Time,
		), nil
	case domain.KindAppointmentCancelled:
		return fmt.Sprintf(
			"❌ *Appointment cancelled*\n\n"+
				"🏢 %s\n"+
				"💈 Service: %s\n"+
				"📅 %s at %s",
			data.BusinessName, data.ServiceName, data.Date, data.Time,
		), nil
	case domain.KindAppointmentReminder:
		return fmt.Sprintf(
			"⏰ *Appointment reminder*\n\n"+
				"🏢 %s\n"+
				"💈 Service: %s\n"+
				"📅 %s at %s\n\n"+
				"See you soon!",
			data.BusinessName, data.ServiceName, data.Date, data.Time,
		), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
}

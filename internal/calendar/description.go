package calendar

import (
	"fmt"
	"strings"
)

// The event description embeds contact details as key:value lines. Older
// bookings exist only as calendar events, so this format doubles as the
// storage schema for legacy reservations and must stay parseable.
const (
	descKeyName     = "Nome"
	descKeyEmail    = "Email"
	descKeyPhone    = "Telefone"
	descKeyModality = "Modalidade"
	descKeyCode     = "Código"
	descKeyFirst    = "Primeira consulta"
	descKeyMessage  = "Mensagem"
)

// RenderDescription serializes event details into the description body.
func RenderDescription(d EventDetails) string {
	first := "não"
	if d.FirstConsultation {
		first = "sim"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", descKeyName, d.Name)
	fmt.Fprintf(&b, "%s: %s\n", descKeyEmail, d.Email)
	fmt.Fprintf(&b, "%s: %s\n", descKeyPhone, d.Phone)
	fmt.Fprintf(&b, "%s: %s\n", descKeyModality, d.Modality)
	fmt.Fprintf(&b, "%s: %s\n", descKeyCode, d.ConfirmationCode)
	fmt.Fprintf(&b, "%s: %s\n", descKeyFirst, first)
	if d.Message != "" {
		fmt.Fprintf(&b, "%s: %s\n", descKeyMessage, d.Message)
	}
	return b.String()
}

// ParseDescription extracts the embedded key:value pairs from an event
// description. Unknown lines are ignored; a missing field is simply absent
// from the map.
func ParseDescription(description string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(description, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

// LegacyDetails are the reservation fields reconstructed from an event
// that predates the local ledger.
type LegacyDetails struct {
	Name              string
	Email             string
	Phone             string
	Modality          string
	ConfirmationCode  string
	FirstConsultation bool
	Message           string
}

// ParseLegacyDetails reconstructs reservation details from a description.
func ParseLegacyDetails(description string) LegacyDetails {
	fields := ParseDescription(description)
	return LegacyDetails{
		Name:              fields[descKeyName],
		Email:             fields[descKeyEmail],
		Phone:             fields[descKeyPhone],
		Modality:          fields[descKeyModality],
		ConfirmationCode:  fields[descKeyCode],
		FirstConsultation: strings.EqualFold(fields[descKeyFirst], "sim"),
		Message:           fields[descKeyMessage],
	}
}

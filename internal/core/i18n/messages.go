package i18n

import (
	"fmt"
	"strings"
	"time"
)

type Key string

const (
	KeyGreeting             Key = "greeting"
	KeyAvailableSlots       Key = "available_slots"
	KeyNoSlots              Key = "no_slots"
	KeyNotWorkingDay        Key = "not_working_day"
	KeyValidationError      Key = "validation_error"
	KeyAppointmentConfirmed Key = "appointment_confirmed"
	KeyAppointmentCancelled Key = "appointment_cancelled"
	KeyErrorProcessing      Key = "error_processing"
	KeySlotTaken            Key = "slot_taken"

	// Validation reasons, same codes as scheduling.Reason
	KeyUnknownAction     Key = "unknown_action"
	KeyMissingDate       Key = "missing_date"
	KeyMissingTime       Key = "missing_time"
	KeyMissingClientName Key = "missing_client_name"
	KeyInvalidDateFormat Key = "invalid_date_format"
	KeyInvalidTimeFormat Key = "invalid_time_format"
	KeyMustBeFuture      Key = "must_be_future"
	KeyClosedDay         Key = "closed_day"
	KeyUnknownService    Key = "unknown_service"
)

var catalog = map[Language]map[Key]string{
	Spanish: {
		KeyGreeting:             "Hola",
		KeyAvailableSlots:       "Horarios disponibles",
		KeyNoSlots:              "Lo siento, no hay horarios disponibles",
		KeyNotWorkingDay:        "Lo siento, no atendemos los",
		KeyValidationError:      "Por favor, intenta nuevamente",
		KeyAppointmentConfirmed: "Cita confirmada",
		KeyAppointmentCancelled: "Cita cancelada",
		KeyErrorProcessing:      "Lo siento, tengo problemas para procesar tu mensaje en este momento. Por favor, intenta de nuevo en unos momentos.",
		KeySlotTaken:            "Ese horario ya no está disponible",

		KeyUnknownAction:     "No entendí la acción solicitada",
		KeyMissingDate:       "Falta la fecha de la cita",
		KeyMissingTime:       "Falta la hora de la cita",
		KeyMissingClientName: "Falta el nombre del cliente",
		KeyInvalidDateFormat: "La fecha debe tener el formato AAAA-MM-DD",
		KeyInvalidTimeFormat: "La hora debe tener el formato HH:mm",
		KeyMustBeFuture:      "La cita debe ser en el futuro",
		KeyClosedDay:         "No atendemos ese día",
		KeyUnknownService:    "Ese servicio no está disponible",
	},
	English: {
		KeyGreeting:             "Hello",
		KeyAvailableSlots:       "Available slots",
		KeyNoSlots:              "Sorry, no slots available",
		KeyNotWorkingDay:        "Sorry, we are not open on",
		KeyValidationError:      "Please try again",
		KeyAppointmentConfirmed: "Appointment confirmed",
		KeyAppointmentCancelled: "Appointment cancelled",
		KeyErrorProcessing:      "Sorry, I'm having trouble processing your message right now. Please try again in a few moments.",
		KeySlotTaken:            "That time is no longer available",

		KeyUnknownAction:     "I did not understand the requested action",
		KeyMissingDate:       "The appointment date is missing",
		KeyMissingTime:       "The appointment time is missing",
		KeyMissingClientName: "The client name is missing",
		KeyInvalidDateFormat: "The date must use the YYYY-MM-DD format",
		KeyInvalidTimeFormat: "The time must use the HH:mm format",
		KeyMustBeFuture:      "The appointment must be in the future",
		KeyClosedDay:         "We are not open that day",
		KeyUnknownService:    "That service is not available",
	},
	Portuguese: {
		KeyGreeting:             "Olá",
		KeyAvailableSlots:       "Horários disponíveis",
		KeyNoSlots:              "Desculpe, não há horários disponíveis",
		KeyNotWorkingDay:        "Desculpe, não atendemos aos",
		KeyValidationError:      "Por favor, tente novamente",
		KeyAppointmentConfirmed: "Consulta confirmada",
		KeyAppointmentCancelled: "Consulta cancelada",
		KeyErrorProcessing:      "Desculpe, estou com problemas para processar sua mensagem agora. Por favor, tente novamente em alguns momentos.",
		KeySlotTaken:            "Esse horário não está mais disponível",

		KeyUnknownAction:     "Não entendi a ação solicitada",
		KeyMissingDate:       "Falta a data da consulta",
		KeyMissingTime:       "Falta o horário da consulta",
		KeyMissingClientName: "Falta o nome do cliente",
		KeyInvalidDateFormat: "A data deve estar no formato AAAA-MM-DD",
		KeyInvalidTimeFormat: "O horário deve estar no formato HH:mm",
		KeyMustBeFuture:      "A consulta deve ser no futuro",
		KeyClosedDay:         "Não atendemos nesse dia",
		KeyUnknownService:    "Esse serviço não está disponível",
	},
}

// T returns the translation for key, falling back to Spanish and finally to
// the key itself.
func T(lang Language, key Key) string {
	if msg, ok := catalog[lang][key]; ok {
		return msg
	}
	if msg, ok := catalog[DefaultLanguage][key]; ok {
		return msg
	}
	return string(key)
}

// Rejection is the reply sent when a booking request fails validation.
func Rejection(lang Language, reason string) string {
	return fmt.Sprintf("❌ %s. %s.", T(lang, Key(reason)), T(lang, KeyValidationError))
}

// Confirmation is sent after a booking is stored.
func Confirmation(lang Language, when string, service string) string {
	msg := fmt.Sprintf("✅ %s: %s", T(lang, KeyAppointmentConfirmed), when)
	if strings.TrimSpace(service) != "" {
		msg += " (" + service + ")"
	}
	return msg
}

// Cancellation is sent after a booking is cancelled.
func Cancellation(lang Language, when string) string {
	return fmt.Sprintf("✅ %s: %s", T(lang, KeyAppointmentCancelled), when)
}

// ClosedOn is the "we are not open on <weekday>s" reply.
func ClosedOn(lang Language, day time.Weekday) string {
	return fmt.Sprintf("%s %s.", T(lang, KeyNotWorkingDay), WeekdayPlural(lang, day))
}

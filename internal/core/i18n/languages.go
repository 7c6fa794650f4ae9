package i18n

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

type Language string

const (
	Spanish    Language = "es"
	English    Language = "en"
	Portuguese Language = "pt"

	DefaultLanguage = Spanish
)

// Parse maps a stored language code to a supported language.
func Parse(code string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case English:
		return English
	case Portuguese:
		return Portuguese
	case Spanish:
		return Spanish
	}
	return DefaultLanguage
}

var indicators = map[Language][]string{
	Portuguese: {
		"olá", "oi", "tchau", "obrigado", "obrigada", "por favor",
		"bom dia", "boa tarde", "boa noite", "sim", "não", "você",
		"horário", "disponível", "consulta", "agendamento", "agendar",
	},
	English: {
		"hello", "hi", "bye", "thank", "thanks", "please", "good morning",
		"good afternoon", "good evening", "yes", "no", "you",
		"schedule", "appointment", "available", "booking", "book",
	},
	Spanish: {
		"hola", "buenos días", "buenas tardes", "buenas noches",
		"gracias", "por favor", "sí", "adiós", "cita", "horario", "quiero",
	},
}

// Detect guesses the language of an inbound message by counting indicator
// words. Indicators only match on word boundaries. A message with no clear
// winner gets fallback.
func Detect(message string, fallback Language) Language {
	normalized := " " + strings.Join(strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r)
	}), " ") + " "

	count := func(lang Language) int {
		n := 0
		for _, word := range indicators[lang] {
			if strings.Contains(normalized, " "+word+" ") {
				n++
			}
		}
		return n
	}

	pt, en, es := count(Portuguese), count(English), count(Spanish)
	switch {
	case pt > en && pt > es:
		return Portuguese
	case en > pt && en > es:
		return English
	case es > pt && es > en:
		return Spanish
	}
	if fallback == "" {
		return DefaultLanguage
	}
	return fallback
}

// Directive is the instruction appended to the system prompt.
func Directive(lang Language) string {
	switch lang {
	case English:
		return "Always respond in English."
	case Portuguese:
		return "Sempre responda em português."
	default:
		return "Responde siempre en español."
	}
}

var weekdays = map[Language][7]string{
	Spanish:    {"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
	English:    {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	Portuguese: {"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
}

var months = map[Language][12]string{
	Spanish:    {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	English:    {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	Portuguese: {"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
}

func Weekday(lang Language, d time.Weekday) string {
	names, ok := weekdays[lang]
	if !ok {
		names = weekdays[DefaultLanguage]
	}
	return names[d]
}

// WeekdayPlural is used in sentences like "we are not open on Sundays".
func WeekdayPlural(lang Language, d time.Weekday) string {
	name := Weekday(lang, d)
	switch lang {
	case Portuguese:
		if strings.HasSuffix(name, "-feira") {
			return strings.TrimSuffix(name, "-feira") + "s-feiras"
		}
		return name + "s"
	case English:
		return name + "s"
	default:
		if strings.HasSuffix(name, "s") {
			return name
		}
		return name + "s"
	}
}

func Month(lang Language, m time.Month) string {
	names, ok := months[lang]
	if !ok {
		names = months[DefaultLanguage]
	}
	return names[m-1]
}

// FormatDateTime renders a slot start the way the assistant says it,
// e.g. "lunes 13 de octubre a las 09:00".
func FormatDateTime(lang Language, t time.Time) string {
	clock := t.Format("15:04")
	day := t.Day()
	switch lang {
	case English:
		return fmt.Sprintf("%s, %s %d at %s", Weekday(lang, t.Weekday()), Month(lang, t.Month()), day, clock)
	case Portuguese:
		return fmt.Sprintf("%s, %d de %s às %s", Weekday(lang, t.Weekday()), day, Month(lang, t.Month()), clock)
	default:
		return fmt.Sprintf("%s %d de %s a las %s", Weekday(Spanish, t.Weekday()), day, Month(Spanish, t.Month()), clock)
	}
}

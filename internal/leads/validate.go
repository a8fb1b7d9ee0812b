package leads

import (
	"strings"

	"github.com/tupakrantina/backoffice/internal/external/whatsapp"
)

// Form is the lead capture form as typed by the user
type Form struct {
	Nombre   string `json:"nombre"`
	Cedula   string `json:"cedula"`
	WhatsApp string `json:"whatsapp"`
}

// FieldError is one invalid form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field, in form order
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "formulario inválido: " + strings.Join(msgs, "; ")
}

// Validate checks the form. Empty fields, names with fewer than three
// words, cédulas without exactly 10 digits and malformed WhatsApp numbers
// are reported together.
func Validate(f Form) error {
	var errs []FieldError

	nombre := strings.TrimSpace(f.Nombre)
	switch {
	case nombre == "":
		errs = append(errs, FieldError{"nombre", "Campo obligatorio"})
	case !ValidFullName(nombre):
		errs = append(errs, FieldError{"nombre", "Ingrese el nombre COMPLETO"})
	}

	cedula := strings.TrimSpace(f.Cedula)
	switch {
	case cedula == "":
		errs = append(errs, FieldError{"cedula", "Campo obligatorio"})
	case !ValidCedula(cedula):
		errs = append(errs, FieldError{"cedula", "Ingrese una cédula válida"})
	}

	phone := strings.TrimSpace(f.WhatsApp)
	if phone == "" {
		errs = append(errs, FieldError{"whatsapp", "Campo obligatorio"})
	} else if msg := PhoneProblem(FormatPhone(phone)); msg != "" {
		errs = append(errs, FieldError{"whatsapp", msg})
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidFullName requires at least three whitespace separated words
func ValidFullName(s string) bool {
	return len(strings.Fields(s)) >= 3
}

// ValidCedula requires exactly 10 digits once non-digits are removed
func ValidCedula(s string) bool {
	return len(whatsapp.Digits(s)) == 10
}

// FormatPhone keeps digits, prefixes the country code 1 to 10-digit
// numbers not starting with 1, and truncates to 11 digits.
func FormatPhone(s string) string {
	d := whatsapp.Digits(s)
	if len(d) == 10 && !strings.HasPrefix(d, "1") {
		d = "1" + d
	}
	if len(d) > 11 {
		d = d[:11]
	}
	return d
}

// PhoneProblem describes why a formatted number is not acceptable, or "" when it is
func PhoneProblem(digits string) string {
	switch {
	case len(digits) != 11:
		return "El número debe tener exactamente 11 dígitos"
	case !strings.HasPrefix(digits, "1"):
		return "El número debe comenzar con 1 (código de país USA)"
	default:
		return ""
	}
}

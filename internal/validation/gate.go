package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meridianlabs/site-api/internal/model"
)

// emailPattern requires local@domain with at least one dot in the domain.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)+$`)

// requiredFields maps each submission kind to its required field set.
// Reporting order follows model.FieldOrder, not input order, so the same
// bad input always produces the same error.
var requiredFields = map[model.SubmissionKind]map[string]bool{
	model.KindContactMessage: {
		model.FieldFirstName: true,
		model.FieldLastName:  true,
		model.FieldEmail:     true,
		model.FieldMessage:   true,
	},
	model.KindWelcomeNotice: {
		model.FieldFirstName: true,
		model.FieldEmail:     true,
	},
}

// Error is a validation failure. Exactly one of MissingFields and
// InvalidEmail is set.
type Error struct {
	MissingFields []string
	InvalidEmail  bool
}

func (e *Error) Error() string {
	if e.InvalidEmail {
		return "invalid email address"
	}
	return fmt.Sprintf("missing required field: %s", e.MissingFields[0])
}

// Gate normalizes and validates raw submission fields. It is a pure
// function of its input.
type Gate struct{}

func NewGate() *Gate {
	return &Gate{}
}

// Validate trims every known field, checks the kind's required set in
// declared order, and verifies email syntax. On success it returns the
// normalized field mapping with absent optional fields as empty strings.
func (g *Gate) Validate(kind model.SubmissionKind, raw map[string]string) (model.Fields, error) {
	required, ok := requiredFields[kind]
	if !ok {
		return nil, fmt.Errorf("unknown submission kind: %s", kind)
	}

	fields := make(model.Fields, len(model.FieldOrder))
	for _, name := range model.FieldOrder {
		fields[name] = strings.TrimSpace(raw[name])
	}

	var missing []string
	for _, name := range model.FieldOrder {
		if required[name] && fields[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &Error{MissingFields: missing}
	}

	if email := fields[model.FieldEmail]; email != "" && !emailPattern.MatchString(email) {
		return nil, &Error{InvalidEmail: true}
	}

	return fields, nil
}

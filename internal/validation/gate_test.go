package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/site-api/internal/model"
)

func validContact() map[string]string {
	return map[string]string{
		model.FieldFirstName: "Jane",
		model.FieldLastName:  "Doe",
		model.FieldEmail:     "jane@example.com",
		model.FieldMessage:   "hello",
	}
}

func TestValidateContactMessage(t *testing.T) {
	gate := NewGate()

	fields, err := gate.Validate(model.KindContactMessage, validContact())
	require.NoError(t, err)
	assert.Equal(t, "Jane", fields[model.FieldFirstName])
	assert.Equal(t, "", fields[model.FieldCompany], "absent optional fields default to empty")
}

func TestValidateTrimsWhitespace(t *testing.T) {
	gate := NewGate()
	raw := validContact()
	raw[model.FieldFirstName] = "  Jane  "
	raw[model.FieldEmail] = " jane@example.com "

	fields, err := gate.Validate(model.KindContactMessage, raw)
	require.NoError(t, err)
	assert.Equal(t, "Jane", fields[model.FieldFirstName])
	assert.Equal(t, "jane@example.com", fields[model.FieldEmail])
}

func TestValidateMissingFieldNamedInDeclaredOrder(t *testing.T) {
	gate := NewGate()

	raw := validContact()
	raw[model.FieldFirstName] = ""
	_, err := gate.Validate(model.KindContactMessage, raw)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{model.FieldFirstName}, verr.MissingFields)

	// Multiple missing fields are reported first-name first regardless of
	// which one the caller omitted last.
	raw = validContact()
	raw[model.FieldMessage] = ""
	raw[model.FieldFirstName] = "   "
	_, err = gate.Validate(model.KindContactMessage, raw)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{model.FieldFirstName, model.FieldMessage}, verr.MissingFields)
}

func TestValidateRejectsBadEmail(t *testing.T) {
	gate := NewGate()

	for _, email := range []string{"not-an-email", "a@b", "a@.com", "@example.com", "a b@example.com"} {
		raw := validContact()
		raw[model.FieldEmail] = email
		_, err := gate.Validate(model.KindContactMessage, raw)
		var verr *Error
		require.ErrorAs(t, err, &verr, "email %q should fail", email)
		assert.True(t, verr.InvalidEmail, "email %q should be reported invalid", email)
	}
}

func TestValidateAcceptsDottedDomains(t *testing.T) {
	gate := NewGate()

	for _, email := range []string{"a@b.co", "first.last+tag@mail.example.org"} {
		raw := validContact()
		raw[model.FieldEmail] = email
		_, err := gate.Validate(model.KindContactMessage, raw)
		assert.NoError(t, err, "email %q should pass", email)
	}
}

func TestValidateWelcomeNotice(t *testing.T) {
	gate := NewGate()

	_, err := gate.Validate(model.KindWelcomeNotice, map[string]string{
		model.FieldFirstName: "Jane",
		model.FieldEmail:     "jane@example.com",
	})
	assert.NoError(t, err, "welcome notices need no message")

	_, err = gate.Validate(model.KindWelcomeNotice, map[string]string{
		model.FieldFirstName: "Jane",
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{model.FieldEmail}, verr.MissingFields)
}

func TestValidateUnknownKind(t *testing.T) {
	gate := NewGate()
	_, err := gate.Validate(model.SubmissionKind("newsletter"), validContact())
	assert.Error(t, err)
}

func TestValidateHasNoSideEffects(t *testing.T) {
	gate := NewGate()
	raw := validContact()
	raw[model.FieldFirstName] = "  Jane  "

	_, err := gate.Validate(model.KindContactMessage, raw)
	require.NoError(t, err)
	assert.Equal(t, "  Jane  ", raw[model.FieldFirstName], "input map must not be mutated")
}

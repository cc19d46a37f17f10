package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewLeadNormalizes(t *testing.T) {
	l := NewLead("  Asha ", " ASHA@Test.com ", " 9999999999", "online-only ")

	assert.Equal(t, "Asha", l.Name)
	assert.Equal(t, "asha@test.com", l.Email)
	assert.Equal(t, "9999999999", l.Phone)
	assert.Equal(t, "online-only", l.Course)
	assert.Equal(t, PaymentPending, l.PaymentStatus)
	assert.False(t, l.EmailSent)
	assert.NotEmpty(t, l.ID)
	assert.NoError(t, l.Validate())
}

func TestLeadValidate(t *testing.T) {
	tests := []struct {
		name  string
		lead  *Lead
		field string
	}{
		{"missing name", NewLead("", "a@b.com", "1", "x"), "name"},
		{"missing email", NewLead("A", "", "1", "x"), "email"},
		{"bad email", NewLead("A", "not-an-email", "1", "x"), "email"},
		{"tld too long", NewLead("A", "a@b.comzz", "1", "x"), "email"},
		{"missing phone", NewLead("A", "a@b.com", "", "x"), "phone"},
		{"missing course", NewLead("A", "a@b.com", "1", ""), "course"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lead.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.True(t, strings.HasPrefix(err.Error(), "User validation failed: "+tt.field))
		})
	}
}

func TestLeadValidateRejectsUnknownPaymentStatus(t *testing.T) {
	l := NewLead("A", "a@b.com", "1", "x")
	l.PaymentStatus = "refunded"

	assert.ErrorIs(t, l.Validate(), ErrValidation)
}

func TestUnknownCourseIsAccepted(t *testing.T) {
	l := NewLead("A", "a@b.com", "1", "no-such-course")

	assert.NoError(t, l.Validate())
	assert.Equal(t, "no-such-course", CourseDisplayName(l.Course))
}

func TestCourseDisplayName(t *testing.T) {
	assert.Equal(t, "30-Day Online Course Only", CourseDisplayName("online-only"))
	assert.Equal(t, "3-Day Bootcamp Only (at IIT Kanpur)", CourseDisplayName("bootcamp-only"))
	assert.Equal(t, "Selected Course", CourseDisplayName(""))

	_, ok := FindCourse("online-bootcamp")
	assert.True(t, ok)
}

func TestNormalizeEmailProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "email")

		once := NormalizeEmail(raw)
		assert.Equal(t, once, NormalizeEmail(once))
		assert.Equal(t, strings.ToLower(once), once)
		assert.Equal(t, strings.TrimSpace(once), once)
	})
}

func TestValidEmailsSurviveCaseAndPadding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		local := rapid.StringMatching(`[a-zA-Z0-9]{1,12}`).Draw(t, "local")
		domain := rapid.StringMatching(`[a-zA-Z0-9]{1,12}`).Draw(t, "domain")
		tld := rapid.StringMatching(`[a-zA-Z]{2,3}`).Draw(t, "tld")
		pad := rapid.StringMatching(` {0,3}`).Draw(t, "pad")

		l := NewLead("Name", pad+local+"@"+domain+"."+tld+pad, "1", "online-only")

		assert.NoError(t, l.Validate())
		assert.Equal(t, strings.ToLower(local+"@"+domain+"."+tld), l.Email)
	})
}

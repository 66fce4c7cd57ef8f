package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communicare/portal/internal/notify"
	"github.com/communicare/portal/internal/validate"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validCommunityInfo() validate.Values {
	return validate.Values{
		validate.CommunityName:  "Springville",
		validate.CommunityEmail: "hello@springville.org",
		validate.PhoneNumber:    "+27 11 555 0100",
		validate.Address:        "1 Main Road",
	}
}

func validAdminAccount() validate.Values {
	return validate.Values{
		validate.AdminName:       "Thandi van der Merwe",
		validate.AdminEmail:      "thandi@springville.org",
		validate.Password:        "correct-horse",
		validate.ConfirmPassword: "correct-horse",
	}
}

func newTestWizard(t *testing.T) *Wizard {
	t.Helper()
	return NewWizard("draft-1", validate.CommunityRules(false))
}

func advancedWizard(t *testing.T) *Wizard {
	t.Helper()
	w := newTestWizard(t)
	require.NoError(t, w.EditMany(validCommunityInfo()))
	require.NoError(t, w.Advance())
	return w
}

func TestWizard_AdvanceRequiresCommunityInfo(t *testing.T) {
	w := newTestWizard(t)
	require.NoError(t, w.EditMany(validate.Values{
		validate.CommunityName:  "",
		validate.CommunityEmail: "hello@springville.org",
		validate.PhoneNumber:    "555",
	}))

	err := w.Advance()

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepCommunityInfo, w.Step())
	want := validate.FieldErrors{validate.CommunityName: "Community name is required"}
	if diff := cmp.Diff(want, w.View(testNow).Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestWizard_AdvanceChecksEmailShape(t *testing.T) {
	w := newTestWizard(t)
	values := validCommunityInfo()
	values[validate.CommunityEmail] = "springville"
	require.NoError(t, w.EditMany(values))

	require.Error(t, w.Advance())
	assert.Equal(t, validate.MsgInvalidEmail, w.View(testNow).Errors[validate.CommunityEmail])
}

func TestWizard_AdvanceIgnoresAddressByDefault(t *testing.T) {
	w := newTestWizard(t)
	values := validCommunityInfo()
	delete(values, validate.Address)
	require.NoError(t, w.EditMany(values))

	require.NoError(t, w.Advance())
	assert.Equal(t, StepAdminAccount, w.Step())
}

func TestWizard_AdvanceRequiresAddressWhenConfigured(t *testing.T) {
	w := NewWizard("draft-1", validate.CommunityRules(true))
	values := validCommunityInfo()
	values[validate.Address] = "  "
	require.NoError(t, w.EditMany(values))

	require.Error(t, w.Advance())
	assert.Equal(t, "Address is required", w.View(testNow).Errors[validate.Address])
}

func TestWizard_AdvanceTwiceIsWrongStep(t *testing.T) {
	w := advancedWizard(t)
	assert.ErrorIs(t, w.Advance(), ErrWrongStep)
	assert.Equal(t, StepAdminAccount, w.Step())
}

func TestWizard_EditClearsOnlyThatFieldError(t *testing.T) {
	w := newTestWizard(t)
	require.Error(t, w.Advance())
	require.Len(t, w.View(testNow).Errors, 3)

	require.NoError(t, w.Edit(validate.CommunityName, "S"))

	errs := w.View(testNow).Errors
	assert.NotContains(t, errs, validate.CommunityName)
	assert.Contains(t, errs, validate.CommunityEmail)
	assert.Contains(t, errs, validate.PhoneNumber)
}

func TestWizard_EditToInvalidDoesNotValidate(t *testing.T) {
	w := newTestWizard(t)
	require.NoError(t, w.Edit(validate.CommunityEmail, "nope"))
	assert.Empty(t, w.View(testNow).Errors)
}

func TestWizard_EditUnknownField(t *testing.T) {
	w := newTestWizard(t)

	err := w.EditMany(validate.Values{
		validate.CommunityName: "Springville",
		"favouriteColour":      "green",
	})

	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Empty(t, w.View(testNow).Values, "nothing applied")

	assert.ErrorIs(t, w.Edit(validate.Email, "x@y.z"), ErrUnknownField, "member fields are not wizard fields")
}

func TestWizard_RetreatThenAdvance(t *testing.T) {
	w := advancedWizard(t)
	require.NoError(t, w.EditMany(validAdminAccount()))

	require.NoError(t, w.Retreat())
	assert.Equal(t, StepCommunityInfo, w.Step())
	assert.Equal(t, "Thandi van der Merwe", w.View(testNow).Values[validate.AdminName], "values kept")

	require.NoError(t, w.Advance())
	assert.Equal(t, StepAdminAccount, w.Step())
	assert.Empty(t, w.View(testNow).Errors)
}

func TestWizard_RetreatKeepsErrors(t *testing.T) {
	w := advancedWizard(t)
	admin := validAdminAccount()
	admin[validate.AdminEmail] = "not-an-email"
	require.NoError(t, w.EditMany(admin))
	_, err := w.beginSubmit()
	require.Error(t, err)

	require.NoError(t, w.Retreat())
	want := validate.FieldErrors{validate.AdminEmail: validate.MsgInvalidEmail}
	assert.Equal(t, want, w.View(testNow).Errors)

	// Advancing validates only CommunityInfo; the untouched admin email keeps its error.
	require.NoError(t, w.Advance())
	assert.Equal(t, want, w.View(testNow).Errors)
}

func TestWizard_AdvanceReplacesOnlyCommunityInfoErrors(t *testing.T) {
	w := advancedWizard(t)
	_, err := w.beginSubmit()
	require.Error(t, err)
	require.NoError(t, w.Retreat())

	require.NoError(t, w.Edit(validate.CommunityName, ""))
	require.Error(t, w.Advance())

	errs := w.View(testNow).Errors
	assert.Equal(t, "Community name is required", errs[validate.CommunityName])
	assert.Equal(t, "Name is required", errs[validate.AdminName], "admin errors survive a failed advance")
}

func TestWizard_CommunityInfoLockedOnAdminAccount(t *testing.T) {
	w := advancedWizard(t)

	err := w.EditMany(validate.Values{
		validate.CommunityName:  "",
		validate.CommunityEmail: "garbage",
		validate.AdminName:      "Thandi",
	})
	assert.ErrorIs(t, err, ErrWrongStep)

	v := w.View(testNow)
	assert.Equal(t, "Springville", v.Values[validate.CommunityName], "nothing applied")
	assert.NotContains(t, v.Values, validate.AdminName)

	assert.ErrorIs(t, w.Edit(validate.Address, ""), ErrWrongStep)

	require.NoError(t, w.Retreat())
	require.NoError(t, w.Edit(validate.CommunityName, "Springville Heights"))
	assert.Equal(t, StepCommunityInfo, w.Step())
}

func TestWizard_BeginSubmit(t *testing.T) {
	t.Run("wrong step", func(t *testing.T) {
		w := newTestWizard(t)
		_, err := w.beginSubmit()
		assert.ErrorIs(t, err, ErrWrongStep)
	})

	t.Run("password mismatch", func(t *testing.T) {
		w := advancedWizard(t)
		values := validAdminAccount()
		values[validate.ConfirmPassword] = "correct-horsE"
		require.NoError(t, w.EditMany(values))

		_, err := w.beginSubmit()

		var verr *validate.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, validate.FieldErrors{validate.ConfirmPassword: validate.MsgPasswordMismatch}, verr.Fields)
		assert.False(t, w.View(testNow).Submitting)
	})

	t.Run("in flight", func(t *testing.T) {
		w := advancedWizard(t)
		require.NoError(t, w.EditMany(validAdminAccount()))

		_, err := w.beginSubmit()
		require.NoError(t, err)
		assert.True(t, w.View(testNow).Submitting)

		_, err = w.beginSubmit()
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
		assert.ErrorIs(t, w.Edit(validate.AdminName, "x"), ErrSubmissionInFlight)
		assert.ErrorIs(t, w.Retreat(), ErrSubmissionInFlight)

		w.finishSubmit(notify.Failure("nope", testNow, time.Second), false)
		_, err = w.beginSubmit()
		assert.NoError(t, err, "a failed submission can be retried")
	})

	t.Run("completed", func(t *testing.T) {
		w := advancedWizard(t)
		require.NoError(t, w.EditMany(validAdminAccount()))
		_, err := w.beginSubmit()
		require.NoError(t, err)
		w.finishSubmit(notify.Success(MsgSuccess, testNow, time.Second), true)

		_, err = w.beginSubmit()
		assert.ErrorIs(t, err, ErrCompleted)
		assert.True(t, errors.Is(w.Edit(validate.AdminName, "x"), ErrCompleted))
	})
}

func TestWizard_ViewOmitsPasswords(t *testing.T) {
	w := advancedWizard(t)
	require.NoError(t, w.EditMany(validAdminAccount()))

	v := w.View(testNow)

	assert.NotContains(t, v.Values, validate.Password)
	assert.NotContains(t, v.Values, validate.ConfirmPassword)
	assert.Equal(t, "thandi@springville.org", v.Values[validate.AdminEmail])
	assert.Equal(t, "draft-1", v.ID)
}

func TestWizard_NotificationExpires(t *testing.T) {
	w := advancedWizard(t)
	w.finishSubmit(notify.Failure("Email already in use", testNow, notify.DefaultTTL), false)

	assert.True(t, w.View(testNow.Add(5*time.Second)).Notification.Visible)
	assert.False(t, w.View(testNow.Add(notify.DefaultTTL)).Notification.Visible)

	w.CloseNotification()
	assert.False(t, w.View(testNow).Notification.Visible)
}

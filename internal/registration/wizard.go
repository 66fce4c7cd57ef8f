// Package registration implements the community registration wizard and the
// single-step member registration form.
//
// A Wizard holds one draft across two steps. CommunityInfo collects the
// community details and AdminAccount the administrator's credentials. Only a
// clean Advance reaches AdminAccount, and only AdminAccount can be submitted.
package registration

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/notify"
	"github.com/communicare/portal/internal/validate"
)

// Step is a wizard page.
type Step string

const (
	StepCommunityInfo Step = "CommunityInfo"
	StepAdminAccount  Step = "AdminAccount"
)

var (
	// ErrWrongStep is returned when an operation is not allowed on the current step.
	ErrWrongStep = errors.New("operation not allowed on current step")
	// ErrUnknownField is returned when editing a field the wizard does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrSubmissionInFlight is returned while a submission is outstanding.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrCompleted is returned once the draft has been registered.
	ErrCompleted = errors.New("registration already completed")
)

// Wizard is a single community registration draft. It is safe for concurrent use.
type Wizard struct {
	mu sync.Mutex

	id           string
	rules        validate.Rules
	step         Step
	values       validate.Values
	errors       validate.FieldErrors
	notification notify.Notification
	inFlight     bool
	completed    bool
}

// NewWizard returns an empty draft on the CommunityInfo step.
func NewWizard(id string, rules validate.Rules) *Wizard {
	return &Wizard{
		id:     id,
		rules:  rules,
		step:   StepCommunityInfo,
		values: make(validate.Values),
		errors: make(validate.FieldErrors),
	}
}

// ID returns the draft ID.
func (w *Wizard) ID() string {
	return w.id
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func knownField(f validate.Field) bool {
	return validate.Known(f, validate.CommunityInfoFields, validate.AdminAccountFields)
}

// editable reports why the draft cannot change, if it cannot. Callers hold mu.
func (w *Wizard) editable() error {
	switch {
	case w.completed:
		return ErrCompleted
	case w.inFlight:
		return ErrSubmissionInFlight
	}
	return nil
}

// Edit sets a field and clears its error without validating.
func (w *Wizard) Edit(field validate.Field, value string) error {
	return w.EditMany(validate.Values{field: value})
}

// EditMany applies several edits at once. Nothing is applied if any field is
// unknown, or if a CommunityInfo field is edited on AdminAccount; Retreat is
// the way back to those fields.
func (w *Wizard) EditMany(values validate.Values) error {
	for f := range values {
		if !knownField(f) {
			return fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if w.step == StepAdminAccount {
		for f := range values {
			if validate.Known(f, validate.CommunityInfoFields) {
				return fmt.Errorf("%w: %q belongs to %s", ErrWrongStep, f, StepCommunityInfo)
			}
		}
	}
	for f, v := range values {
		w.values[f] = v
		delete(w.errors, f)
	}
	return nil
}

// Advance validates the CommunityInfo fields and moves to AdminAccount when
// they are clean. Otherwise the errors are kept and a *validate.Error returned.
func (w *Wizard) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if w.step != StepCommunityInfo {
		return ErrWrongStep
	}

	errs, ok := w.rules.Validate(w.values, validate.CommunityInfoFields...)
	w.mergeErrors(errs, validate.CommunityInfoFields)
	if !ok {
		return validate.Check(errs)
	}
	w.step = StepAdminAccount
	return nil
}

// mergeErrors replaces the errors of the validated fields only. Errors of
// other fields stay until their values change. Callers hold mu.
func (w *Wizard) mergeErrors(errs validate.FieldErrors, validated []validate.Field) {
	for _, f := range validated {
		delete(w.errors, f)
	}
	for f, msg := range errs {
		w.errors[f] = msg
	}
}

// Retreat moves back to CommunityInfo, keeping values and errors.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	w.step = StepCommunityInfo
	return nil
}

// CloseNotification hides the current notification.
func (w *Wizard) CloseNotification() {
	w.mu.Lock()
	w.notification = notify.Notification{}
	w.mu.Unlock()
}

// beginSubmit validates the AdminAccount fields and marks the draft in
// flight. The caller must follow up with finishSubmit.
func (w *Wizard) beginSubmit() (authclient.RegisterPayload, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return authclient.RegisterPayload{}, err
	}
	if w.step != StepAdminAccount {
		return authclient.RegisterPayload{}, ErrWrongStep
	}

	errs, ok := w.rules.Validate(w.values, validate.AdminAccountFields...)
	w.mergeErrors(errs, validate.AdminAccountFields)
	if !ok {
		return authclient.RegisterPayload{}, validate.Check(errs)
	}

	w.inFlight = true
	return CommunityPayload(w.values), nil
}

func (w *Wizard) finishSubmit(n notify.Notification, succeeded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.inFlight = false
	w.completed = succeeded
	w.notification = n
}

// View is the client-facing snapshot of a draft. Passwords are never included.
type View struct {
	ID           string               `json:"id"`
	Step         Step                 `json:"step"`
	Values       validate.Values      `json:"values"`
	Errors       validate.FieldErrors `json:"errors"`
	Notification notify.Notification  `json:"notification"`
	Submitting   bool                 `json:"submitting"`
	Completed    bool                 `json:"completed"`
}

// View returns a snapshot of the draft as seen at now.
func (w *Wizard) View(now time.Time) View {
	w.mu.Lock()
	defer w.mu.Unlock()

	values := make(validate.Values, len(w.values))
	for f, v := range w.values {
		if f == validate.Password || f == validate.ConfirmPassword {
			continue
		}
		values[f] = v
	}
	errs := make(validate.FieldErrors, len(w.errors))
	for f, msg := range w.errors {
		errs[f] = msg
	}

	return View{
		ID:           w.id,
		Step:         w.step,
		Values:       values,
		Errors:       errs,
		Notification: w.notification.At(now),
		Submitting:   w.inFlight,
		Completed:    w.completed,
	}
}

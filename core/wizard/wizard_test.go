package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/async"
	"github.com/trezcool/engsoc/core/form"
)

func newValidator() *form.Validator {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return form.NewValidator(validate, translator)
}

var registrationFlow = Flow{
	Name: "registration",
	Schema: form.Schema{
		{Name: "full_name", Rules: "required", Messages: map[string]string{"required": "Name is required"}},
		{Name: "payment_method", Rules: "required,oneof=credit upi netbanking"},
	},
	Steps: []Step{
		{Name: "details"},
		{Name: "form", Fields: []string{"full_name"}},
		{Name: "payment", Fields: []string{"payment_method"}},
		{Name: "confirmation"},
	},
}

func newMachine(t *testing.T, submit SubmitFunc) (*Machine, *async.Scope) {
	scope := async.NewScope(context.Background())
	t.Cleanup(scope.Close)
	m, err := New(registrationFlow, Options{Validator: newValidator(), Scope: scope, Submit: submit})
	require.NoError(t, err)
	return m, scope
}

func resultOp(res interface{}, err error) SubmitFunc {
	return func(values map[string]interface{}) async.Operation {
		return async.OperationFunc(func(ctx context.Context) (interface{}, error) { return res, err })
	}
}

func TestNew(t *testing.T) {
	_, err := New(Flow{Steps: []Step{{Name: "only"}}}, Options{Validator: newValidator()})
	assert.Equal(t, ErrInvalidFlow, err)

	_, err = New(registrationFlow, Options{Validator: newValidator(), Submit: resultOp(nil, nil)})
	assert.Error(t, err, "submitting needs a scope")
}

func TestMachine_Advance(t *testing.T) {
	m, _ := newMachine(t, resultOp("REG-1", nil))
	assert.Equal(t, "details", m.Step())

	// steps without fields advance unconditionally
	require.NoError(t, m.Advance())
	assert.Equal(t, "form", m.Step())

	// empty full_name: stays on form
	err := m.Advance()
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"full_name": "Name is required"}, vErr.FieldsMap())
	assert.Equal(t, "form", m.Step())
	assert.Equal(t, form.Errors{"full_name": "Name is required"}, m.Snapshot().Errors)

	// updating a field clears its error
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada"}))
	assert.Empty(t, m.Snapshot().Errors)

	require.NoError(t, m.Advance())
	assert.Equal(t, "payment", m.Step())

	require.NoError(t, m.Set(map[string]interface{}{"payment_method": "upi"}))
	require.NoError(t, m.Advance())
	require.NoError(t, m.Wait(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, "confirmation", snap.Step)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "REG-1", snap.Result)

	assert.Equal(t, ErrTerminal, m.Advance())
	assert.Equal(t, ErrTerminal, m.Retreat())
	assert.Equal(t, ErrTerminal, m.Set(map[string]interface{}{"full_name": "Bob"}))
}

func TestMachine_Advance_earlierStepChanged(t *testing.T) {
	var submitted map[string]interface{}
	m, _ := newMachine(t, func(values map[string]interface{}) async.Operation {
		submitted = values
		return async.OperationFunc(func(ctx context.Context) (interface{}, error) { return "REG-1", nil })
	})

	require.NoError(t, m.Advance())
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada"}))
	require.NoError(t, m.Advance())
	assert.Equal(t, "payment", m.Step())

	// blanked after the form step was left
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "   ", "payment_method": "upi"}))
	err := m.Advance()
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"full_name": "Name is required"}, vErr.FieldsMap())
	assert.Equal(t, "form", m.Step(), "goes back to the invalid step")
	assert.Equal(t, StatusIdle, m.Status())
	assert.Nil(t, submitted)

	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada"}))
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())
	require.NoError(t, m.Wait(context.Background()))
	assert.Equal(t, "confirmation", m.Step())
	assert.Equal(t, "Ada", submitted["full_name"])
}

func TestMachine_Edit(t *testing.T) {
	m, _ := newMachine(t, resultOp("REG-1", nil))

	calls := 0
	edit := func() error { calls++; return nil }
	require.NoError(t, m.Edit(edit))
	assert.Equal(t, 1, calls)

	require.NoError(t, m.Advance())
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada", "payment_method": "upi"}))
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())
	require.NoError(t, m.Wait(context.Background()))

	assert.Equal(t, ErrTerminal, m.Edit(edit))
	assert.Equal(t, 1, calls)
}

func TestMachine_Retreat(t *testing.T) {
	m, _ := newMachine(t, nil)

	before := m.Snapshot()
	require.NoError(t, m.Retreat())
	assert.Equal(t, before, m.Snapshot(), "retreat on the first step is a no-op")

	require.NoError(t, m.Advance())
	require.NoError(t, m.Retreat())
	assert.Equal(t, "details", m.Step())
}

func TestMachine_failedSubmission(t *testing.T) {
	fail := true
	submit := func(values map[string]interface{}) async.Operation {
		return async.OperationFunc(func(ctx context.Context) (interface{}, error) {
			if fail {
				return nil, errors.New("payment declined")
			}
			return "ok", nil
		})
	}
	m, _ := newMachine(t, submit)
	require.NoError(t, m.Advance())
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada", "payment_method": "credit"}))
	require.NoError(t, m.Advance())

	require.NoError(t, m.Advance())
	assert.EqualError(t, m.Wait(context.Background()), "payment declined")
	snap := m.Snapshot()
	assert.Equal(t, "payment", snap.Step, "terminal step is only reached on success")
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "payment declined", snap.Error)

	// retry
	fail = false
	require.NoError(t, m.Advance())
	require.NoError(t, m.Wait(context.Background()))
	assert.Equal(t, "confirmation", m.Step())
}

func TestMachine_busyWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	submit := func(values map[string]interface{}) async.Operation {
		return async.OperationFunc(func(ctx context.Context) (interface{}, error) {
			<-release
			return nil, nil
		})
	}
	m, _ := newMachine(t, submit)
	require.NoError(t, m.Advance())
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada", "payment_method": "credit"}))
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())

	assert.Equal(t, StatusSubmitting, m.Status())
	assert.Equal(t, ErrBusy, m.Advance())
	assert.Equal(t, ErrBusy, m.Retreat())
	assert.Equal(t, ErrBusy, m.Edit(func() error { return nil }))

	close(release)
	require.NoError(t, m.Wait(context.Background()))
	assert.Equal(t, StatusCompleted, m.Status())
}

func TestMachine_teardownDuringSubmission(t *testing.T) {
	submit := func(values map[string]interface{}) async.Operation {
		return async.Delay(time.Hour, nil)
	}
	m, scope := newMachine(t, submit)
	require.NoError(t, m.Advance())
	require.NoError(t, m.Set(map[string]interface{}{"full_name": "Ada", "payment_method": "credit"}))
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())

	scope.Close()
	<-m.Done()

	snap := m.Snapshot()
	assert.Equal(t, "payment", snap.Step)
	assert.Equal(t, StatusSubmitting, snap.Status, "no update lands after teardown")
	assert.Equal(t, async.ErrScopeClosed, m.opts.Scope.Go(func(ctx context.Context) {}))
}

package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupakrantina/backoffice/internal/external/webhook"
	"github.com/tupakrantina/backoffice/internal/external/whatsapp"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5551234567", "15551234567"},
		{"(555) 123-4567", "15551234567"},
		{"1555123456", "1555123456"},
		{"+1 555 123 4567", "15551234567"},
		{"155512345678901", "15551234567"},
		{"abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPhone(tt.in), tt.in)
	}
}

func TestPhoneProblem(t *testing.T) {
	assert.Empty(t, PhoneProblem("15551234567"))
	assert.Contains(t, PhoneProblem("1555123456"), "11 dígitos")
	assert.Contains(t, PhoneProblem("25551234567"), "comenzar con 1")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		form   Form
		fields []string
	}{
		{"valid", Form{"Juan Carlos Perez", "091234567-8", "5551234567"}, nil},
		{"all empty", Form{}, []string{"nombre", "cedula", "whatsapp"}},
		{"short name", Form{"Juan Perez", "0912345678", "15551234567"}, []string{"nombre"}},
		{"short cedula", Form{"Juan Carlos Perez", "12345", "15551234567"}, []string{"cedula"}},
		{"bad phone", Form{"Juan Carlos Perez", "0912345678", "25551234567"}, []string{"whatsapp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			var got []string
			for _, f := range ve.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

type fakeVerifier struct {
	result whatsapp.Result
	err    error
	asked  []string
}

func (f *fakeVerifier) Verify(ctx context.Context, number string) (whatsapp.Result, error) {
	f.asked = append(f.asked, number)
	return f.result, f.err
}

type fakeSubmitter struct {
	link string
	err  error
	got  webhook.Lead
}

func (f *fakeSubmitter) Submit(ctx context.Context, lead webhook.Lead) (string, error) {
	f.got = lead
	return f.link, f.err
}

var validForm = Form{Nombre: "  Juan   Carlos Perez ", Cedula: "091234567-8", WhatsApp: "(555) 123-4567"}

func newService(v Verifier, s Submitter) *Service {
	return NewService(v, s, redis.NewRateLimiter(redis.Disabled(), "test"), zerolog.Nop())
}

func TestSubmit(t *testing.T) {
	v := &fakeVerifier{result: whatsapp.Result{Exists: true}}
	s := &fakeSubmitter{link: "https://wa.me/abc"}

	link, err := newService(v, s).Submit(context.Background(), validForm, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "https://wa.me/abc", link)
	assert.Equal(t, []string{"15551234567"}, v.asked)
	assert.Equal(t, webhook.Lead{Nombre: "Juan Carlos Perez", Cedula: "0912345678", WhatsApp: "15551234567"}, s.got)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name    string
		form    Form
		v       *fakeVerifier
		s       *fakeSubmitter
		wantErr error
	}{
		{"not on whatsapp", validForm, &fakeVerifier{}, &fakeSubmitter{}, ErrNumberNotFound},
		{"verifier down", validForm, &fakeVerifier{err: errors.New("timeout")}, &fakeSubmitter{}, ErrVerificationFailed},
		{"no link", validForm, &fakeVerifier{result: whatsapp.Result{Exists: true}}, &fakeSubmitter{err: webhook.ErrNoLink}, webhook.ErrNoLink},
		{"webhook down", validForm, &fakeVerifier{result: whatsapp.Result{Exists: true}}, &fakeSubmitter{err: errors.New("502")}, ErrSubmitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(tt.v, tt.s).Submit(context.Background(), tt.form, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubmitInvalidFormSkipsRemoteCalls(t *testing.T) {
	v := &fakeVerifier{}
	_, err := newService(v, &fakeSubmitter{}).Submit(context.Background(), Form{Nombre: "Ana"}, "")

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Empty(t, v.asked)
}

func TestVerifyNumber(t *testing.T) {
	svc := newService(&fakeVerifier{result: whatsapp.Result{Exists: true, Number: "15551234567"}}, &fakeSubmitter{})

	res, err := svc.VerifyNumber(context.Background(), "555-123-4567", "ip")
	require.NoError(t, err)
	assert.True(t, res.Exists)

	_, err = svc.VerifyNumber(context.Background(), "123", "ip")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	svc = newService(&fakeVerifier{result: whatsapp.Result{Number: "15551234567"}}, &fakeSubmitter{})
	_, err = svc.VerifyNumber(context.Background(), "5551234567", "ip")
	assert.ErrorIs(t, err, ErrNumberNotFound)
}

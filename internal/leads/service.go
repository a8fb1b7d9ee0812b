package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/internal/external/webhook"
	"github.com/tupakrantina/backoffice/internal/external/whatsapp"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

var (
	// ErrNumberNotFound means the number has no WhatsApp account
	ErrNumberNotFound = errors.New("El número no está registrado en WhatsApp o no es válido")
	// ErrVerificationFailed means the number could not be checked
	ErrVerificationFailed = errors.New("Error al verificar el número de WhatsApp. Verifique su conexión e inténtelo de nuevo.")
	// ErrRateLimited means the caller submitted too often
	ErrRateLimited = errors.New("Demasiados intentos. Espere un momento e inténtelo de nuevo.")
	// ErrSubmitFailed means the webhook rejected or could not receive the lead
	ErrSubmitFailed = errors.New("Error al enviar los datos. Por favor, inténtelo de nuevo.")
)

// Verifier checks phone numbers
type Verifier interface {
	Verify(ctx context.Context, number string) (whatsapp.Result, error)
}

// Submitter delivers leads and returns the generated link
type Submitter interface {
	Submit(ctx context.Context, lead webhook.Lead) (string, error)
}

// Service runs the lead capture flow: validate, verify, submit
type Service struct {
	verifier  Verifier
	submitter Submitter
	limiter   *redis.RateLimiter
	log       zerolog.Logger
}

// NewService creates the lead service; limiter may wrap a disabled client
func NewService(verifier Verifier, submitter Submitter, limiter *redis.RateLimiter, log zerolog.Logger) *Service {
	return &Service{
		verifier:  verifier,
		submitter: submitter,
		limiter:   limiter,
		log:       log.With().Str("component", "leads").Logger(),
	}
}

// VerifyNumber formats and checks a number. Only an existing account is success.
func (s *Service) VerifyNumber(ctx context.Context, raw, clientID string) (whatsapp.Result, error) {
	if err := s.allow(ctx, redis.WhatsAppVerifyRateLimit, clientID); err != nil {
		return whatsapp.Result{}, err
	}

	number := FormatPhone(raw)
	if msg := PhoneProblem(number); msg != "" {
		return whatsapp.Result{Number: number}, &ValidationError{Fields: []FieldError{{"whatsapp", msg}}}
	}

	res, err := s.verifier.Verify(ctx, number)
	if err != nil {
		s.log.Warn().Err(err).Str("number", number).Msg("WhatsApp verification failed")
		return whatsapp.Result{Number: number}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !res.Exists {
		return res, ErrNumberNotFound
	}
	return res, nil
}

// Submit validates the form, verifies the number and posts the lead.
// It returns the link produced by the workflow.
func (s *Service) Submit(ctx context.Context, form Form, clientID string) (string, error) {
	if err := Validate(form); err != nil {
		return "", err
	}
	if err := s.allow(ctx, redis.LeadSubmitRateLimit, clientID); err != nil {
		return "", err
	}

	number := FormatPhone(form.WhatsApp)
	res, err := s.verifier.Verify(ctx, number)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !res.Exists {
		return "", ErrNumberNotFound
	}

	link, err := s.submitter.Submit(ctx, webhook.Lead{
		Nombre:   strings.Join(strings.Fields(form.Nombre), " "),
		Cedula:   whatsapp.Digits(form.Cedula),
		WhatsApp: number,
	})
	if errors.Is(err, webhook.ErrNoLink) {
		return "", err
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Lead submission failed")
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	s.log.Info().Str("whatsapp", number).Msg("Lead link generated")
	return link, nil
}

func (s *Service) allow(ctx context.Context, cfg redis.RateLimitConfig, clientID string) error {
	if s.limiter == nil || clientID == "" {
		return nil
	}
	ok, _, err := s.limiter.Allow(ctx, cfg.ForClient(clientID))
	if err != nil {
		// a Redis outage must not block the form
		s.log.Warn().Err(err).Msg("Rate limiter unavailable")
		return nil
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

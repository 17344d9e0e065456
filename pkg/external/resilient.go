package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/medreport-server/internal/domain"
)

// HTTPError is a non-2xx response from an AI service. Status codes >= 500
// and 429 are transient and retried once; everything else fails fast.
type HTTPError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// Transient reports whether the error is worth a single retry.
func (e *HTTPError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// ResilientAIClient wraps the three AI service clients with per-service
// circuit breakers, client-side rate limiting and one retry on transient
// failures. It is the only client the pipeline services see.
type ResilientAIClient struct {
	logger *logrus.Logger

	textGen     TextGenerator
	transcriber Transcriber
	ocr         DocumentReader

	textGenBreaker     *gobreaker.CircuitBreaker
	transcriberBreaker *gobreaker.CircuitBreaker
	ocrBreaker         *gobreaker.CircuitBreaker

	textGenLimiter     *rate.Limiter
	transcriberLimiter *rate.Limiter
	ocrLimiter         *rate.Limiter
}

// NewResilientAIClient builds the resilient wrapper from configuration.
func NewResilientAIClient(config domain.ExternalAPIConfig, logger *logrus.Logger) *ResilientAIClient {
	return NewResilientAIClientWith(
		NewTextGenClient(config.TextGen),
		NewTranscribeClient(config.Transcription),
		NewOCRClient(config.OCR),
		config,
		logger,
	)
}

// NewResilientAIClientWith accepts pre-built clients, which tests use to
// substitute fakes.
func NewResilientAIClientWith(
	textGen TextGenerator,
	transcriber Transcriber,
	ocr DocumentReader,
	config domain.ExternalAPIConfig,
	logger *logrus.Logger,
) *ResilientAIClient {
	return &ResilientAIClient{
		logger:             logger,
		textGen:            textGen,
		transcriber:        transcriber,
		ocr:                ocr,
		textGenBreaker:     newBreaker("TextGen", logger),
		transcriberBreaker: newBreaker("Transcription", logger),
		ocrBreaker:         newBreaker("OCR", logger),
		textGenLimiter:     newLimiter(config.TextGen.RateLimit),
		transcriberLimiter: newLimiter(config.Transcription.RateLimit),
		ocrLimiter:         newLimiter(config.OCR.RateLimit),
	}
}

func newBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

func newLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// Complete generates report prose with resilience applied.
func (r *ResilientAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return r.execute(ctx, "textgen", r.textGenBreaker, r.textGenLimiter, func() (string, error) {
		return r.textGen.Complete(ctx, systemPrompt, userPrompt)
	})
}

// Transcribe converts audio to text with resilience applied.
func (r *ResilientAIClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	return r.execute(ctx, "transcription", r.transcriberBreaker, r.transcriberLimiter, func() (string, error) {
		return r.transcriber.Transcribe(ctx, audio, filename, language)
	})
}

// ExtractText reads document text with resilience applied.
func (r *ResilientAIClient) ExtractText(ctx context.Context, document []byte, filename string) (string, error) {
	return r.execute(ctx, "ocr", r.ocrBreaker, r.ocrLimiter, func() (string, error) {
		return r.ocr.ExtractText(ctx, document, filename)
	})
}

func (r *ResilientAIClient) execute(
	ctx context.Context,
	service string,
	breaker *gobreaker.CircuitBreaker,
	limiter *rate.Limiter,
	call func() (string, error),
) (string, error) {
	if err := limiter.Wait(ctx); err != nil {
		return "", err
	}

	attempt := func() (string, error) {
		result, err := breaker.Execute(func() (interface{}, error) {
			return call()
		})
		if err != nil {
			return "", err
		}
		return result.(string), nil
	}

	result, err := attempt()
	if err == nil {
		return result, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) {
		return "", domain.NewExternalAPIError(service, fmt.Errorf("service unavailable (circuit breaker open)"))
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Transient() && ctx.Err() == nil {
		r.logger.WithFields(logrus.Fields{
			"service": service,
			"status":  httpErr.StatusCode,
		}).Warn("Transient failure, retrying once")
		if result, retryErr := attempt(); retryErr == nil {
			return result, nil
		}
	}

	return "", domain.NewExternalAPIError(service, err)
}

// PingTextGen checks the text generation service directly, bypassing the
// breaker so health checks observe the real service state.
func (r *ResilientAIClient) PingTextGen(ctx context.Context) error { return r.textGen.Ping(ctx) }

// PingTranscription checks the transcription service.
func (r *ResilientAIClient) PingTranscription(ctx context.Context) error {
	return r.transcriber.Ping(ctx)
}

// PingOCR checks the OCR service.
func (r *ResilientAIClient) PingOCR(ctx context.Context) error { return r.ocr.Ping(ctx) }

// BreakerStates reports the current state of every circuit breaker.
func (r *ResilientAIClient) BreakerStates() map[string]gobreaker.State {
	return map[string]gobreaker.State{
		"textgen":       r.textGenBreaker.State(),
		"transcription": r.transcriberBreaker.State(),
		"ocr":           r.ocrBreaker.State(),
	}
}

// BreakerCounts reports request statistics for every circuit breaker.
func (r *ResilientAIClient) BreakerCounts() map[string]gobreaker.Counts {
	return map[string]gobreaker.Counts{
		"textgen":       r.textGenBreaker.Counts(),
		"transcription": r.transcriberBreaker.Counts(),
		"ocr":           r.ocrBreaker.Counts(),
	}
}

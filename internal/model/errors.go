package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput indica entrada inválida (lista vazia, taxa não positiva)
	ErrInvalidInput = errors.New("entrada inválida")

	// ErrRateLimited indica que o cliente esgotou a cota de análises
	ErrRateLimited = errors.New("limite de análises excedido")

	// ErrTrustFailed indica falha na verificação anti-bot
	ErrTrustFailed = errors.New("verificação anti-bot falhou")

	// ErrTrustUnavailable indica que o serviço de verificação não respondeu
	ErrTrustUnavailable = errors.New("serviço de verificação indisponível")

	// ErrWorkflowNotFound indica workflow inexistente
	ErrWorkflowNotFound = errors.New("workflow não encontrado")

	// ErrAnalysisNotFound indica que o workflow ainda não foi analisado
	ErrAnalysisNotFound = errors.New("análise não encontrada")

	// ErrOracleUnavailable indica falha de transporte ou timeout no oráculo
	ErrOracleUnavailable = errors.New("oráculo de IA indisponível")

	// ErrOracleMalformed indica resposta do oráculo fora do formato esperado
	ErrOracleMalformed = errors.New("resposta do oráculo em formato inválido")
)

// Motivos de rejeição expostos ao cliente
const (
	ReasonRateLimit        = "rate_limit"
	ReasonCaptchaFailed    = "captcha_failed"
	ReasonBotDetected      = "bot_detected"
	ReasonTrustUnavailable = "trust_unavailable"
	ReasonInvalidInput     = "invalid_input"
)

// RateLimitError carrega o tempo até a próxima vaga na janela
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %d análises por janela, tente novamente em %s",
		ErrRateLimited, e.Limit, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// TrustError descreve a rejeição da verificação anti-bot
type TrustError struct {
	Reason string
	Score  float64
}

func (e *TrustError) Error() string {
	if e.Reason == ReasonBotDetected {
		return fmt.Sprintf("%s: requisição automatizada detectada (score %.2f)", ErrTrustFailed, e.Score)
	}
	return fmt.Sprintf("%s: %s", ErrTrustFailed, e.Reason)
}

func (e *TrustError) Unwrap() error { return ErrTrustFailed }

// InvalidInput cria um erro de entrada inválida com o motivo
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

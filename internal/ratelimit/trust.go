package ratelimit

import (
	"context"
	"errors"

	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// TrustVerifier decide se um token do cliente é confiável
type TrustVerifier interface {
	Verify(ctx context.Context, token string) error
}

// SiteVerifier é o serviço externo de verificação (reCAPTCHA)
type SiteVerifier interface {
	SiteVerify(ctx context.Context, token string) (*client.SiteVerifyResponse, error)
}

// ScoreVerifier aceita o token quando o serviço reporta sucesso e score >= mínimo
type ScoreVerifier struct {
	service  SiteVerifier
	minScore float64
}

// NewScoreVerifier cria um verificador com score mínimo
func NewScoreVerifier(service SiteVerifier, minScore float64) *ScoreVerifier {
	return &ScoreVerifier{service: service, minScore: minScore}
}

// Verify retorna *model.TrustError (captcha_failed/bot_detected) ou
// ErrTrustUnavailable quando o serviço não responde. Nunca libera por falha.
func (v *ScoreVerifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return &model.TrustError{Reason: model.ReasonCaptchaFailed}
	}

	result, err := v.service.SiteVerify(ctx, token)
	if err != nil {
		if !errors.Is(err, model.ErrTrustUnavailable) {
			err = errors.Join(model.ErrTrustUnavailable, err)
		}
		logger.Get(ctx).Error().Err(err).Msg("Verificação anti-bot indisponível")
		return err
	}

	if !result.Success {
		logger.Get(ctx).Warn().
			Strs("error_codes", result.ErrorCodes).
			Msg("Token anti-bot rejeitado")
		return &model.TrustError{Reason: model.ReasonCaptchaFailed}
	}

	if result.Score < v.minScore {
		logger.Get(ctx).Warn().
			Float64("score", result.Score).
			Float64("min_score", v.minScore).
			Msg("Score anti-bot abaixo do mínimo")
		return &model.TrustError{Reason: model.ReasonBotDetected, Score: result.Score}
	}

	return nil
}

// BypassVerifier aceita qualquer token. Só é montado quando o operador
// habilita ALLOW_UNVERIFIED_CLIENTS (ou em modo debug sem secret).
type BypassVerifier struct{}

// Verify sempre aceita
func (BypassVerifier) Verify(context.Context, string) error { return nil }

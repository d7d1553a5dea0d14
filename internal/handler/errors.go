package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// Códigos de erro retornados ao cliente. As falhas do pipeline usam os
// mesmos motivos estruturados do domínio.
const (
	CodeInvalidInput     = model.ReasonInvalidInput
	CodeRateLimit        = model.ReasonRateLimit
	CodeCaptchaFailed    = model.ReasonCaptchaFailed
	CodeBotDetected      = model.ReasonBotDetected
	CodeTrustUnavailable = model.ReasonTrustUnavailable
	CodeOracleError      = "oracle_error"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal_error"
)

// respondError traduz erros do domínio para status HTTP
func respondError(c *gin.Context, err error) {
	var (
		rateErr  *model.RateLimitError
		trustErr *model.TrustError
	)

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "entrada inválida",
			Code:    CodeInvalidInput,
			Details: err.Error(),
		})

	case errors.As(err, &rateErr):
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, model.ErrorResponse{
			Error:             "limite de análises excedido, tente novamente mais tarde",
			Code:              CodeRateLimit,
			Details:           "retry after " + (time.Duration(seconds) * time.Second).String(),
			RetryAfterSeconds: seconds,
		})

	case errors.As(err, &trustErr):
		code := CodeCaptchaFailed
		if trustErr.Reason == model.ReasonBotDetected {
			code = CodeBotDetected
		}
		c.JSON(http.StatusForbidden, model.ErrorResponse{
			Error: "verificação anti-bot falhou",
			Code:  code,
		})

	case errors.Is(err, model.ErrTrustUnavailable):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error: "serviço de verificação indisponível, tente novamente",
			Code:  CodeTrustUnavailable,
		})

	case errors.Is(err, model.ErrOracleUnavailable):
		logger.FromGin(c).Warn().Err(err).Msg("Oráculo indisponível")
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error: "serviço de IA indisponível, tente novamente",
			Code:  CodeOracleError,
		})

	case errors.Is(err, model.ErrOracleMalformed):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Error:   "não foi possível interpretar a resposta da IA",
			Code:    CodeOracleError,
			Details: err.Error(),
		})

	case errors.Is(err, model.ErrWorkflowNotFound), errors.Is(err, model.ErrAnalysisNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error: err.Error(),
			Code:  CodeNotFound,
		})

	default:
		logger.FromGin(c).Error().Err(err).Msg("Erro interno")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error: "erro interno",
			Code:  CodeInternal,
		})
	}
}

// parseID lê um parâmetro de rota numérico positivo
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error: name + " inválido",
			Code:  CodeInvalidInput,
		})
		return 0, false
	}
	return id, true
}

// bindError responde a um payload inválido
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "payload inválido",
		Code:    CodeInvalidInput,
		Details: err.Error(),
	})
}

package ratelimit

import (
	"context"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// Governor combina a verificação anti-bot e a cota por cliente.
// Criado no início do processo; o estado vive apenas em memória.
type Governor struct {
	window *SlidingWindow
	trust  TrustVerifier
}

// NewGovernor cria o governador; trust nil equivale a BypassVerifier
func NewGovernor(window *SlidingWindow, trust TrustVerifier) *Governor {
	if trust == nil {
		trust = BypassVerifier{}
	}
	return &Governor{window: window, trust: trust}
}

// Admit verifica o token e depois consome uma vaga da janela do cliente.
// A verificação vem antes para que tráfego de bot não consuma a cota.
func (g *Governor) Admit(ctx context.Context, clientID, trustToken string) error {
	log := logger.Get(ctx)

	if err := g.trust.Verify(ctx, trustToken); err != nil {
		return err
	}

	decision := g.window.Check(clientID)
	if !decision.Allowed {
		log.Warn().
			Str("client_id", clientID).
			Int("limit", g.window.Limit()).
			Dur("retry_after", decision.RetryAfter).
			Msg("Cota de análises esgotada")
		return &model.RateLimitError{Limit: g.window.Limit(), RetryAfter: decision.RetryAfter}
	}

	log.Debug().
		Str("client_id", clientID).
		Int("remaining", decision.Remaining).
		Msg("Análise admitida")
	return nil
}

// Window expõe o limitador (métricas e testes)
func (g *Governor) Window() *SlidingWindow { return g.window }

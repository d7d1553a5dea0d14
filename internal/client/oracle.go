package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	domain "github.com/cleberrangel/workscan-api/internal/model"
)

// Provedores de oráculo suportados
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultOracleTimeout   = 30 * time.Second
	DefaultOracleMaxTokens = 500
)

// Oracle é o serviço de geração de texto usado na pontuação
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OracleConfig configuração do cliente do oráculo
type OracleConfig struct {
	Provider          string
	APIKey            string
	Model             string
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewChatModel cria o modelo eino do provedor configurado
func NewChatModel(ctx context.Context, cfg OracleConfig) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key do provedor %s não configurada", cfg.Provider)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultOracleMaxTokens
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})
	case ProviderOpenAI:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
		})
	default:
		return nil, fmt.Errorf("provedor não suportado: %s (suportados: anthropic, openai)", cfg.Provider)
	}
}

// ChatOracle adapta um chat model eino para Oracle, com timeout por
// chamada e limite de requisições por minuto
type ChatOracle struct {
	chatModel model.BaseChatModel
	maxTokens int
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewChatOracle cria o oráculo sobre um chat model já construído
func NewChatOracle(chatModel model.BaseChatModel, cfg OracleConfig) *ChatOracle {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultOracleMaxTokens
	}

	// Sem limite configurado o limiter é infinito
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return &ChatOracle{
		chatModel: chatModel,
		maxTokens: maxTokens,
		timeout:   timeout,
		limiter:   limiter,
	}
}

// NewOracle cria o chat model e o envolve em um ChatOracle
func NewOracle(ctx context.Context, cfg OracleConfig) (*ChatOracle, error) {
	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("criar chat model: %w", err)
	}
	return NewChatOracle(chatModel, cfg), nil
}

// Generate envia o prompt como mensagem única e retorna o texto da resposta.
// Erros de transporte, timeout e resposta vazia embrulham ErrOracleUnavailable.
func (o *ChatOracle) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: aguardando limite de requisições: %v", domain.ErrOracleUnavailable, err)
	}

	resp, err := o.chatModel.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithMaxTokens(o.maxTokens),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timeout após %s", domain.ErrOracleUnavailable, o.timeout)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: resposta vazia", domain.ErrOracleUnavailable)
	}

	return resp.Content, nil
}

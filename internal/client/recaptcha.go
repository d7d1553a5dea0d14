package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// DefaultRecaptchaTimeout timeout padrão da verificação
const DefaultRecaptchaTimeout = 5 * time.Second

// SiteVerifyResponse é a resposta do endpoint siteverify do reCAPTCHA v3
type SiteVerifyResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// RecaptchaClient consulta o serviço de verificação anti-bot
type RecaptchaClient struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// NewRecaptchaClient cria um novo cliente de verificação
func NewRecaptchaClient(secret, verifyURL string, timeout time.Duration) *RecaptchaClient {
	if timeout <= 0 {
		timeout = DefaultRecaptchaTimeout
	}
	return &RecaptchaClient{
		secret:    secret,
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SiteVerify envia {secret, response} e decodifica o resultado.
// Falhas de transporte retornam ErrTrustUnavailable.
func (c *RecaptchaClient) SiteVerify(ctx context.Context, token string) (*SiteVerifyResponse, error) {
	form := url.Values{
		"secret":   {c.secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTrustUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", model.ErrTrustUnavailable, resp.StatusCode, string(body))
	}

	var result SiteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", model.ErrTrustUnavailable, err)
	}

	return &result, nil
}

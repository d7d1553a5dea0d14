package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// AuthConfig contém a configuração do middleware de autenticação
type AuthConfig struct {
	// TokenAPI vazio desabilita as rotas protegidas
	TokenAPI string
}

// BearerAuth retorna um middleware que valida o token Bearer das rotas administrativas
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.TokenAPI == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{
				Error: "rotas administrativas desabilitadas (TOKEN_API não configurado)",
				Code:  "admin_disabled",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Error: "header Authorization ausente",
				Code:  "unauthorized",
			})
			return
		}

		// Extrai o token do formato "Bearer {token}"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Error: "formato inválido, esperado: Bearer {token}",
				Code:  "unauthorized",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(cfg.TokenAPI)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Error: "token inválido",
				Code:  "unauthorized",
			})
			return
		}

		c.Next()
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Cabeceras de identidad que consume todo el servicio.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderServiceName   = "X-Service-Name"

	ctxCorrelationID = "correlationId"
	ctxServiceName   = "serviceName"
)

// CorrelationMiddleware adjunta a cada petición su correlation id (se
// genera si falta y siempre se devuelve en la respuesta) y la identidad
// del servicio llamante ("unknown" si no se presenta).
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		serviceName := c.GetHeader(HeaderServiceName)
		if serviceName == "" {
			serviceName = "unknown"
		}

		c.Set(ctxCorrelationID, correlationID)
		c.Set(ctxServiceName, serviceName)
		c.Header(HeaderCorrelationID, correlationID)
		c.Next()
	}
}

// CorrelationID recupera el correlation id de la petición.
func CorrelationID(c *gin.Context) string {
	return c.GetString(ctxCorrelationID)
}

// ServiceName recupera la identidad del servicio llamante.
func ServiceName(c *gin.Context) string {
	return c.GetString(ctxServiceName)
}

// CORSMiddleware aplica la lista de orígenes permitidos de configuración.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, "+HeaderCorrelationID+", "+HeaderServiceName)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

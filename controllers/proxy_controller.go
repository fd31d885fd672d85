package controllers

import (
	"io"
	"net/http"
	"time"

	"civic-portal/clients"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProxyController forwards CRUD traffic (grievances, certificates, bills,
// revenue) to the municipal backend. Idempotent GETs are cached briefly in
// Redis; everything else passes straight through.
type ProxyController struct {
	Backend  *clients.BackendClient
	Cache    *redis.Client
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Forward returns a handler that proxies the wildcard path under the given
// backend prefix.
func (p *ProxyController) Forward(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := prefix + c.Param("path")
		ctx := c.Request.Context()

		cacheKey := ""
		if c.Request.Method == http.MethodGet && p.Cache != nil {
			cacheKey = "proxy:" + path + "?" + c.Request.URL.RawQuery
			if cached, err := p.Cache.Get(ctx, cacheKey).Bytes(); err == nil {
				c.Data(http.StatusOK, "application/json", cached)
				return
			}
		}

		bodyBytes, err := clients.ReadJSONBody(c.Request)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		resp, err := p.Backend.Do(ctx, c.Request.Method, path, c.Request.URL.Query(), c.Request.Header, clients.BodyFromBytes(bodyBytes))
		if err != nil {
			p.Logger.Warn("Backend proxy request failed",
				zap.String("path", path),
				zap.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
			return
		}

		if cacheKey != "" && resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read upstream response"})
				return
			}
			if err := p.Cache.Set(ctx, cacheKey, body, p.CacheTTL).Err(); err != nil {
				p.Logger.Warn("Failed to cache proxy response", zap.Error(err))
			}
			c.Data(http.StatusOK, resp.Header.Get("Content-Type"), body)
			return
		}

		if err := clients.CopyResponse(c.Writer, resp); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read upstream response"})
			return
		}
	}
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"live-stream-bot/bot"
)

// NewRouter собирает HTTP-поверхность наблюдения: здоровье процесса,
// снимок агрегированной статистики (pull-модель) и метрики Prometheus.
func NewRouter(b *bot.Bot) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/v1/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, b.Summary())
	})

	return router
}

// NewServer оборачивает роутер в http.Server для управляемого останова.
func NewServer(addr string, b *bot.Bot) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: NewRouter(b),
	}
}

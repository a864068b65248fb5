package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell/internal/bridge"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/httpapi/handlers"
	"github.com/inkwell-app/inkwell/internal/httpapi/middleware"
	"github.com/inkwell-app/inkwell/internal/store/rabbitmq"
)

func NewRouter(gdb *gorm.DB, cfg config.Config, b *bridge.Bridge, rabbit *rabbitmq.Publisher) (*gin.Engine, error) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "route not found", "data": nil})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"code": 40500, "message": "method not allowed", "data": nil})
	})

	h, err := handlers.NewHandler(gdb, cfg, b, rabbit)
	if err != nil {
		return nil, err
	}

	r.GET("/ping", h.Ping)

	// everything the UI shell calls requires the handshake token
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.AuthSecret))

	authGroup.GET("/ws/chat", h.ChatSocket)
	authGroup.POST("/chat/messages/stream", h.SendMessageStream)
	authGroup.POST("/chat/messages/async", h.SendMessageAsync)
	authGroup.POST("/chat/interrupt", h.Interrupt)
	authGroup.GET("/chat/jobs/:job_id", h.GetJob)
	authGroup.GET("/chat/conversations/:conversation_id/sessions", h.ListSessions)
	authGroup.GET("/chat/sessions/:session_id/messages", h.ListMessages)

	return r, nil
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-compliance/pkg/service"
	appwebsocket "equipment-compliance/pkg/websocket"
)

type WebSocketController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewWebSocketController: allowedOrigin - адрес фронтенда. Пустой - принимаем любой Origin.
func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, allowedOrigin string, logger *zap.Logger) *WebSocketController {
	allowedOrigin = strings.TrimRight(allowedOrigin, "/")
	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

// ServeWs: браузер не умеет ставить заголовки на WebSocket, токен идёт в query.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	tokenString := ctx.QueryParam("token")
	if tokenString == "" {
		return ctx.String(http.StatusUnauthorized, "Missing token")
	}

	claims, err := c.jwtService.ValidateToken(tokenString)
	if err != nil || claims.IsRefreshToken {
		return ctx.String(http.StatusUnauthorized, "Invalid token")
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return err
	}

	client := appwebsocket.NewClient(c.hub, conn, claims.UserID)
	if !c.hub.Join(client) {
		_ = conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("WebSocket: клиент подключен",
		zap.Uint64("userID", claims.UserID),
		zap.String("role", string(claims.Role)),
	)
	return nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xhad/kbot/internal/types"
	"github.com/xhad/kbot/pkg/chatbot"
)

const AskPath = "/api/chatbot/ask_python"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are gated by the CORS middleware
	},
}

type Config struct {
	Addr           string
	Mode           string
	AllowedOrigins []string
	ServiceName    string
	Version        string
}

// Message is the websocket frame exchanged with chat clients.
type Message struct {
	Type     string      `json:"type"`
	Content  string      `json:"content"`
	UserRole string      `json:"user_role,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

type askResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Service      string    `json:"service"`
	Version      string    `json:"version"`
	KnowledgeDir string    `json:"knowledge_dir"`
	Documents    int       `json:"documents"`
}

type Server struct {
	config  Config
	service *chatbot.Service
	loader  types.DocumentLoader
	router  *gin.Engine
}

func New(config Config, service *chatbot.Service, loader types.DocumentLoader) *Server {
	if config.Addr == "" {
		config.Addr = ":5001"
	}
	if config.ServiceName == "" {
		config.ServiceName = "kbot"
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	s := &Server{
		config:  config,
		service: service,
		loader:  loader,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(), recovery(), corsMiddleware(s.config.AllowedOrigins))

	r.POST(AskPath, s.handleAsk)
	r.GET("/ws", s.handleWebSocket)
	r.GET("/health", s.handleHealth)
	r.GET("/healthz", s.handleHealth)

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting chatbot server on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) handleAsk(c *gin.Context) {
	var req chatbot.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, askResponse{Message: chatbot.MsgQuestionRequired})
		return
	}

	reply, err := s.service.Ask(c.Request.Context(), req)
	if err != nil {
		status, msg := s.mapError(c, "ask", err)
		c.JSON(status, askResponse{Message: msg})
		return
	}

	c.JSON(http.StatusOK, askResponse{Message: reply})
}

// mapError turns a service error into a status and a caller-safe message.
func (s *Server) mapError(c *gin.Context, operation string, err error) (int, string) {
	if errors.Is(err, chatbot.ErrQuestionRequired) {
		return http.StatusBadRequest, chatbot.MsgQuestionRequired
	}
	logError(c, operation, err)
	return http.StatusInternalServerError, chatbot.MsgInternalError
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logError(c, "ws_upgrade", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logError(c, "ws_read", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			s.sendMessage(conn, "error", chatbot.MsgQuestionRequired)
			continue
		}

		if msg.Type != "ask" {
			s.sendMessage(conn, "error", fmt.Sprintf("unsupported message type: %s", msg.Type))
			continue
		}

		s.handleMessage(c, conn, msg)
	}
}

func (s *Server) handleMessage(c *gin.Context, conn *websocket.Conn, msg Message) {
	req := chatbot.AskRequest{Question: msg.Content, UserRole: msg.UserRole}

	reply, err := s.service.AskStream(c.Request.Context(), req, func(chunk string) error {
		return conn.WriteJSON(Message{Type: "stream", Content: chunk})
	})
	if err != nil {
		_, text := s.mapError(c, "ws_ask", err)
		s.sendMessage(conn, "error", text)
		return
	}

	s.sendMessage(conn, "response", reply)
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   s.config.ServiceName,
		Version:   s.config.Version,
	}

	if s.loader != nil {
		resp.KnowledgeDir = s.loader.Dir()
		if count, err := s.loader.Count(c.Request.Context()); err == nil {
			resp.Documents = count
		} else {
			resp.Status = "degraded"
		}
	}

	c.JSON(http.StatusOK, resp)
}

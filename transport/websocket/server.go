package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
	"github.com/rocketscienceinc/xoxo-backend/internal/session"
)

type authService interface {
	VerifyToken(token string) (string, error)
}

// Server upgrades browser connections and binds one session engine to each:
// the engine is created when the socket opens and closed with it.
type Server struct {
	logger    *slog.Logger
	auth      authService
	newEngine func(uid string) *session.Engine
	upgrader  websocket.Upgrader
}

func New(logger *slog.Logger, auth authService, newEngine func(uid string) *session.Engine) *Server {
	return &Server{
		logger:    logger,
		auth:      auth,
		newEngine: newEngine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the game is served cross-origin to the static client
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Start - starts the WebSocket server and shuts it down with the context.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleConnection)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  0, // connections are long-lived
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  0,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	uid, err := that.auth.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	client := &client{conn: conn}
	engine := that.newEngine(uid)
	defer engine.Close()

	engine.OnRoomUpdate(func(_ *entity.Room) {
		if err := client.send(&Response{
			Action:  actionGameUpdate,
			Payload: statePayload(engine),
		}); err != nil {
			log.Error("failed to push room update", "error", err)
		}
	})

	log.Info("WebSocket connection established", "uid", uid)

	that.readLoop(r.Context(), client, engine)
}

func (that *Server) readLoop(ctx context.Context, client *client, engine *session.Engine) {
	log := that.logger.With("method", "readLoop")

	for {
		var msg Message
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("unexpected connection close", "error", err)
			}
			return
		}

		if err := that.dispatch(ctx, client, engine, &msg); err != nil {
			log.Error("failed to handle message", "action", msg.Action, "error", err)
			return
		}
	}
}

// client serializes writes: the read loop and the subscription push
// goroutine both write to the same connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (that *client) send(resp *Response) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.conn.WriteJSON(resp); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

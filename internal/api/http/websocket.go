package httpapi

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/i474232898/route-risk/internal/session"
)

const wsPingInterval = 30 * time.Second

func registerWebSocket(app *fiber.App, sess *session.Session, logger *slog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(snapshotRelay(sess, logger)))
}

// snapshotRelay pushes the session snapshot on connect and after every change.
// Client messages are read only to detect disconnects.
func snapshotRelay(sess *session.Session, logger *slog.Logger) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		logger.Info("ws client connected", "remote", remoteAddr)
		defer logger.Info("ws client disconnected", "remote", remoteAddr)

		updates, unsubscribe := sess.Subscribe()
		defer unsubscribe()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func() error {
			data, err := json.Marshal(sess.Snapshot())
			if err != nil {
				return err
			}
			return c.WriteMessage(websocket.TextMessage, data)
		}
		if err := send(); err != nil {
			return
		}

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				if err := send(); err != nil {
					logger.Debug("ws write failed", "remote", remoteAddr, "error", err)
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}
}

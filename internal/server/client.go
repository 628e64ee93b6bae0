package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/engine"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	loginTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и Service
type Client struct {
	ctx      context.Context
	Game     *engine.Service
	Conn     *websocket.Conn
	EntityID types.EntityID

	// Личный канал из Hub. До логина nil.
	updates <-chan api.Notification
	ready   chan struct{}
}

func NewClient(ctx context.Context, game *engine.Service, conn *websocket.Conn) *Client {
	return &Client{
		ctx:   ctx,
		Game:  game,
		Conn:  conn,
		ready: make(chan struct{}),
	}
}

// readPump читает команды от клиента. Первое сообщение - LOGIN.
func (c *Client) readPump() {
	log := logger.Component("ws_client")

	defer func() {
		if err := c.Conn.Close(); err != nil {
			log.WithError(err).Debug("failed to close websocket connection")
		}
		if c.updates == nil {
			close(c.ready)
			return
		}
		// Если сущность перехватила новая сессия, выгружать её нельзя.
		if c.Game.Hub.Unregister(c.EntityID, c.updates) {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			defer cancel()
			if err := c.Game.Logout(ctx, c.EntityID); err != nil {
				log.WithError(err).WithField("entity_id", c.EntityID).Warn("Logout after disconnect failed")
			}
		}
		log.WithField("entity_id", c.EntityID).Info("Client disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// 1. HANDSHAKE (LOGIN)
	if err := c.login(); err != nil {
		log.WithError(err).Warn("Handshake failed")
		c.writeError(api.ActionLogin, "LOGIN_FAILED", err.Error())
		return
	}
	close(c.ready)

	log.WithField("entity_id", c.EntityID).Info("Client logged in")

	// Отправляем INIT (триггер первой отрисовки)
	if err := c.Game.ProcessCommand(c.ctx, c.EntityID, api.ClientCommand{Action: api.ActionInit}); err != nil {
		log.WithError(err).Warn("INIT failed")
		return
	}

	// 2. ЦИКЛ ЧТЕНИЯ КОМАНД
	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Error("WS read error")
			}
			return
		}
		cmd.Token = c.EntityID.MarshalString()
		if err := c.Game.ProcessCommand(c.ctx, c.EntityID, cmd); err != nil {
			log.WithError(err).WithField("entity_id", c.EntityID).Warn("Command not accepted")
			return
		}
	}
}

func (c *Client) login() error {
	var cmd api.ClientCommand
	if err := c.Conn.ReadJSON(&cmd); err != nil {
		return err
	}
	if cmd.Action != api.ActionLogin {
		return &protocolError{"first message must be " + api.ActionLogin}
	}

	var p api.LoginPayload
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.ctx, loginTimeout)
	defer cancel()

	id, err := c.Game.Login(ctx, p.CharacterID, p.Name)
	if err != nil {
		return err
	}

	// 3. ПОДПИСКА НА ОБНОВЛЕНИЯ
	c.EntityID = id
	c.updates = c.Game.Hub.Register(id)
	return nil
}

type protocolError struct{ msg string }

func (e *protocolError) Error() string { return e.msg }

// writeError пишет ответ напрямую. Только до запуска writePump.
func (c *Client) writeError(action, reason, msg string) {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.Conn.WriteJSON(api.Notification{
		Type: api.EventResult,
		Payload: api.ResultView{
			Action: action,
			Type:   api.ResultError,
			Reason: reason,
			Msg:    msg,
		},
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Log.WithError(err).Debug("write handshake error failed")
	}
}

// writePump отправляет данные клиенту + Ping.
// Ждёт логина: до него в соединение пишет только readPump.
func (c *Client) writePump() {
	<-c.ready
	if c.updates == nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	log := logger.Component("ws_client").WithFields(logrus.Fields{"entity_id": c.EntityID})

	for {
		select {
		case message, ok := <-c.updates:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				// канал закрыт: выход или вход той же сущности с другого соединения
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

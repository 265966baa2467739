package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const claimsLocal = "claims"

var (
	ErrRateLimited    = errors.New("rate limit exceeded, please slow down")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

type ChatService interface {
	SendMessage(ctx context.Context, sender *auth.UserClaims, chatID, content string) (*models.Message, error)
	MarkMessageRead(ctx context.Context, claims *auth.UserClaims, messageID string) (*models.MessageReadStatus, error)
}

type Config struct {
	SendBuffer        int
	MessagesPerSecond float64
	MessagesBurst     int
}

func DefaultConfig() Config {
	return Config{
		SendBuffer:        64,
		MessagesPerSecond: 10,
		MessagesBurst:     20,
	}
}

// Gateway serves the websocket endpoint and pushes updates to connected clients.
type Gateway struct {
	chats    ChatService
	verifier auth.Verifier
	registry *Registry
	validate *validator.Validate
	cfg      Config
	logger   logrus.FieldLogger
}

func NewGateway(chats ChatService, verifier auth.Verifier, registry *Registry, v *validator.Validate, cfg Config, logger logrus.FieldLogger) *Gateway {
	return &Gateway{
		chats:    chats,
		verifier: verifier,
		registry: registry,
		validate: v,
		cfg:      cfg,
		logger:   logger,
	}
}

func (g *Gateway) Register(router fiber.Router) {
	router.Use("/ws", g.handshake)
	router.Get("/ws", websocket.New(g.serve))
}

// handshake refuses the upgrade unless the request carries a valid token,
// either as a bearer header or as the token query parameter.
func (g *Gateway) handshake(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		token = c.Query("token")
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.logger.WithError(err).Debug("websocket handshake refused")
		return fiber.ErrUnauthorized
	}

	c.Locals(claimsLocal, claims)
	return c.Next()
}

func (g *Gateway) serve(conn *websocket.Conn) {
	claims, ok := conn.Locals(claimsLocal).(*auth.UserClaims)
	if !ok {
		_ = conn.Close()
		return
	}

	client := g.newClient(conn, claims)
	logger := g.logger.WithField("conn_id", client.ID()).WithField("user_id", claims.UserID())
	if err := g.registry.Register(claims.UserID(), client); err != nil {
		logger.WithError(err).Info("websocket refused")
		return
	}
	go client.writePump()
	logger.Info("websocket connected")

	defer func() {
		g.registry.Deregister(client.ID())
		client.Close()
		logger.Info("websocket disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("websocket read failed")
			}
			return
		}
		g.dispatch(context.Background(), client, raw)
	}
}

// dispatch handles one inbound frame. Replies go to the sending client only.
func (g *Gateway) dispatch(ctx context.Context, c *client, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.reply(ErrorEvent, ErrorPayload{Message: ErrInvalidPayload.Error()})
		return
	}

	var err error
	switch envelope.Event {
	case JoinChatEvent:
		err = g.joinChat(c, envelope.Data)
	case LeaveChatEvent:
		err = g.leaveChat(c, envelope.Data)
	case SendMessageEvent:
		err = g.sendMessage(ctx, c, envelope.Data)
	case MarkMessageReadEvent:
		err = g.markMessageRead(ctx, c, envelope.Data)
	default:
		err = ErrUnknownEvent
	}

	if err != nil {
		c.reply(ErrorEvent, ErrorPayload{Message: g.publicError(err, envelope.Event)})
	}
}

func (g *Gateway) joinChat(c *client, data json.RawMessage) error {
	var payload ChatPayload
	if err := g.decode(data, &payload); err != nil {
		return err
	}
	if err := g.registry.Join(c.ID(), ChatRoom(payload.ChatID)); err != nil {
		return err
	}
	c.reply(JoinedChatEvent, payload)
	return nil
}

func (g *Gateway) leaveChat(c *client, data json.RawMessage) error {
	var payload ChatPayload
	if err := g.decode(data, &payload); err != nil {
		return err
	}
	if err := g.registry.Leave(c.ID(), ChatRoom(payload.ChatID)); err != nil {
		return err
	}
	c.reply(LeftChatEvent, payload)
	return nil
}

func (g *Gateway) sendMessage(ctx context.Context, c *client, data json.RawMessage) error {
	if !c.limiter.Allow() {
		return ErrRateLimited
	}

	var payload SendMessagePayload
	if err := g.decode(data, &payload); err != nil {
		return err
	}

	msg, err := g.chats.SendMessage(ctx, c.claims, payload.ChatID, payload.Content)
	if err != nil {
		return err
	}

	dto := models.MessageToDTO(msg)
	dto.SenderName = c.claims.Username
	c.reply(MessageSentEvent, dto)
	return nil
}

func (g *Gateway) markMessageRead(ctx context.Context, c *client, data json.RawMessage) error {
	var payload MarkMessageReadPayload
	if err := g.decode(data, &payload); err != nil {
		return err
	}

	status, err := g.chats.MarkMessageRead(ctx, c.claims, payload.MessageID)
	if err != nil {
		return err
	}

	c.reply(MessageReadEvent, MessageReadPayload{MessageID: status.MessageID})
	return nil
}

func (g *Gateway) decode(data json.RawMessage, payload any) error {
	if err := json.Unmarshal(data, payload); err != nil {
		return ErrInvalidPayload
	}
	if err := g.validate.Struct(payload); err != nil {
		return ErrInvalidPayload
	}
	return nil
}

// Handle pushes a stored update to the clients that should see it.
func (g *Gateway) Handle(_ context.Context, update models.Update) error {
	switch u := update.(type) {
	case *models.MessageSent:
		return g.pushToRoom(ChatRoom(u.ChatID), MessageReceivedEvent, models.MessageSentToDTO(u))
	case *models.PrivateChatCreated:
		return g.pushToUsers(u.Participants, ChatCreatedEvent, models.PrivateChatCreatedToDTO(u))
	case *models.GroupChatCreated:
		return g.pushToUsers(u.Participants, ChatCreatedEvent, models.GroupChatCreatedToDTO(u))
	case *models.UserAddedToGroup:
		return g.pushToUsers([]string{u.UserID}, AddedToGroupEvent, models.UserAddedToGroupToDTO(u))
	default:
		return nil
	}
}

func (g *Gateway) pushToRoom(room, event string, data any) error {
	frame, err := encode(event, data)
	if err != nil {
		return err
	}
	for _, conn := range g.registry.ConnectionsInRoom(room) {
		g.deliver(conn, frame)
	}
	return nil
}

func (g *Gateway) pushToUsers(userIDs []string, event string, data any) error {
	frame, err := encode(event, data)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		for _, conn := range g.registry.ConnectionsForUser(userID) {
			g.deliver(conn, frame)
		}
	}
	return nil
}

// deliver drops a client whose send buffer is full.
func (g *Gateway) deliver(conn Connection, frame []byte) {
	if conn.Send(frame) {
		return
	}
	g.logger.
		WithField("conn_id", conn.ID()).
		WithField("user_id", conn.UserID()).
		Warn("websocket send buffer is full, dropping connection")
	g.registry.Deregister(conn.ID())
	conn.Close()
}

// publicError hides infrastructure failures from clients.
func (g *Gateway) publicError(err error, event string) string {
	public := []error{
		models.ErrInvalidArgument,
		models.ErrBusinessLogicViolation,
		models.ErrPermissionDenied,
		models.ErrNotFound,
		ErrRateLimited,
		ErrUnknownEvent,
		ErrInvalidPayload,
	}

	for _, e := range public {
		if errors.Is(err, e) {
			return err.Error()
		}
	}

	g.logger.WithError(err).WithField("event", event).Error("websocket action failed")
	return "internal server error"
}

type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	id      string
	claims  *auth.UserClaims
	conn    frameWriter
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

func (g *Gateway) newClient(conn frameWriter, claims *auth.UserClaims) *client {
	return &client{
		id:      uuid.NewString(),
		claims:  claims,
		conn:    conn,
		send:    make(chan []byte, g.cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(g.cfg.MessagesPerSecond), g.cfg.MessagesBurst),
		logger:  g.logger,
	}
}

func (c *client) ID() string {
	return c.id
}

func (c *client) UserID() string {
	return c.claims.UserID()
}

func (c *client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) reply(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		c.logger.WithError(err).WithField("event", event).Error("failed to encode websocket frame")
		return
	}
	if !c.Send(frame) {
		c.logger.WithField("conn_id", c.id).Warn("websocket send buffer is full, reply dropped")
	}
}

// writePump is the only goroutine writing to the socket.
func (c *client) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.WithError(err).WithField("conn_id", c.id).Debug("websocket write failed")
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

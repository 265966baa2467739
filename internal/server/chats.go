package server

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	usecase "github.com/practice-sem-2/chat-service/internal/usecases"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const claimsLocal = "claims"

type ChatServer struct {
	chats    *usecase.ChatsUsecase
	verifier auth.Verifier
	validate *validator.Validate
	logger   logrus.FieldLogger
}

func NewChatServer(c *usecase.ChatsUsecase, a auth.Verifier, v *validator.Validate, logger logrus.FieldLogger) *ChatServer {
	return &ChatServer{
		chats:    c,
		verifier: a,
		validate: v,
		logger:   logger,
	}
}

func (s *ChatServer) Register(router fiber.Router) {
	chats := router.Group("/chats", s.authenticate)
	chats.Post("/private", s.CreatePrivateChat)
	chats.Post("/private/:id/leave", s.LeavePrivateChat)
	chats.Post("/group", s.CreateGroupChat)
	chats.Patch("/group/:id", s.RenameGroupChat)
	chats.Post("/group/:id/leave", s.LeaveGroupChat)
	chats.Post("/group/:id/members", s.AddGroupMember)
	chats.Delete("/group/:id/members/:userId", s.RemoveGroupMember)
	chats.Post("/group/:id/admins/:userId", s.PromoteGroupAdmin)
	chats.Delete("/group/:id/admins/:userId", s.DemoteGroupAdmin)
	chats.Get("/", s.GetUserChats)
	chats.Get("/:id", s.GetChatDetails)
	chats.Get("/:id/messages", s.GetChatMessages)

	router.Post("/messages/:id/read", s.authenticate, s.MarkMessageRead)
}

func (s *ChatServer) authenticate(c *fiber.Ctx) error {
	claims, err := s.verifier.Verify(auth.BearerToken(c.Get(fiber.HeaderAuthorization)))
	if err != nil {
		return wrapError(err)
	}
	c.Locals(claimsLocal, claims)
	return c.Next()
}

func claimsFrom(c *fiber.Ctx) *auth.UserClaims {
	claims, _ := c.Locals(claimsLocal).(*auth.UserClaims)
	return claims
}

func (s *ChatServer) CreatePrivateChat(c *fiber.Ctx) error {
	var req CreatePrivateChatRequest
	if err := s.parse(c, &req, false); err != nil {
		return err
	}

	chat, err := s.chats.CreatePrivateChat(c.UserContext(), claimsFrom(c), req.ParticipantID)
	if err != nil {
		return wrapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.PrivateChatToDTO(chat, nil, 0))
}

func (s *ChatServer) CreateGroupChat(c *fiber.Ctx) error {
	var req CreateGroupChatRequest
	if err := s.parse(c, &req, false); err != nil {
		return err
	}

	chat, err := s.chats.CreateGroupChat(c.UserContext(), claimsFrom(c), req.Name, req.ParticipantIDs)
	if err != nil {
		return wrapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.GroupChatToDTO(chat, nil, 0))
}

func (s *ChatServer) GetUserChats(c *fiber.Ctx) error {
	chats, err := s.chats.GetUserChats(c.UserContext(), claimsFrom(c))
	if err != nil {
		return wrapError(err)
	}
	return c.JSON(models.UserChatsToDTO(chats))
}

func (s *ChatServer) GetChatDetails(c *fiber.Ctx) error {
	summary, err := s.chats.GetChatDetails(c.UserContext(), claimsFrom(c), c.Params("id"))
	if err != nil {
		return wrapError(err)
	}
	return c.JSON(models.SummaryToDTO(summary))
}

func (s *ChatServer) GetChatMessages(c *fiber.Ctx) error {
	var query MessagesQuery
	if err := s.parse(c, &query, true); err != nil {
		return err
	}

	views, err := s.chats.GetChatMessages(c.UserContext(), claimsFrom(c), c.Params("id"), MessagesQueryToSelect(query))
	if err != nil {
		return wrapError(err)
	}
	return c.JSON(lo.Map(views, func(v models.MessageView, _ int) models.MessageDTO {
		return models.MessageViewToDTO(v)
	}))
}

func (s *ChatServer) MarkMessageRead(c *fiber.Ctx) error {
	status, err := s.chats.MarkMessageRead(c.UserContext(), claimsFrom(c), c.Params("id"))
	if err != nil {
		return wrapError(err)
	}
	return c.JSON(ReadStatusToResponse(status))
}

func (s *ChatServer) LeavePrivateChat(c *fiber.Ctx) error {
	chat, err := s.chats.LeavePrivateChat(c.UserContext(), claimsFrom(c), c.Params("id"))
	if err != nil {
		return wrapError(err)
	}
	return c.JSON(models.PrivateChatToDTO(chat, nil, 0))
}

func (s *ChatServer) AddGroupMember(c *fiber.Ctx) error {
	var req AddMemberRequest
	if err := s.parse(c, &req, false); err != nil {
		return err
	}

	chat, err := s.chats.AddGroupMember(c.UserContext(), claimsFrom(c), c.Params("id"), req.UserID)
	return s.groupResponse(c, chat, err)
}

func (s *ChatServer) RemoveGroupMember(c *fiber.Ctx) error {
	chat, err := s.chats.RemoveGroupMember(c.UserContext(), claimsFrom(c), c.Params("id"), c.Params("userId"))
	return s.groupResponse(c, chat, err)
}

func (s *ChatServer) PromoteGroupAdmin(c *fiber.Ctx) error {
	chat, err := s.chats.PromoteGroupAdmin(c.UserContext(), claimsFrom(c), c.Params("id"), c.Params("userId"))
	return s.groupResponse(c, chat, err)
}

func (s *ChatServer) DemoteGroupAdmin(c *fiber.Ctx) error {
	chat, err := s.chats.DemoteGroupAdmin(c.UserContext(), claimsFrom(c), c.Params("id"), c.Params("userId"))
	return s.groupResponse(c, chat, err)
}

func (s *ChatServer) RenameGroupChat(c *fiber.Ctx) error {
	var req RenameGroupRequest
	if err := s.parse(c, &req, false); err != nil {
		return err
	}

	chat, err := s.chats.RenameGroupChat(c.UserContext(), claimsFrom(c), c.Params("id"), req.Name)
	return s.groupResponse(c, chat, err)
}

func (s *ChatServer) LeaveGroupChat(c *fiber.Ctx) error {
	chat, err := s.chats.LeaveGroupChat(c.UserContext(), claimsFrom(c), c.Params("id"))
	return s.groupResponse(c, chat, err)
}

func (s *ChatServer) groupResponse(c *fiber.Ctx, chat *models.GroupChat, err error) error {
	if err != nil {
		return wrapError(err)
	}
	return c.JSON(models.GroupChatToDTO(chat, nil, 0))
}

// ErrorHandler renders every error as {"error": message}. Unexpected errors
// are logged and reported as 500 without details.
func (s *ChatServer) ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		fe = fiber.ErrInternalServerError
	}

	if fe.Code >= fiber.StatusInternalServerError {
		s.logger.
			WithError(err).
			WithField("method", c.Method()).
			WithField("path", c.Path()).
			Error("request failed")
		fe = fiber.ErrInternalServerError
	}

	return c.Status(fe.Code).JSON(fiber.Map{
		"error": fe.Message,
	})
}

func wrapError(err error) error {
	errorMapper := []struct {
		from error
		to   int
	}{
		{auth.ErrMissingToken, fiber.StatusUnauthorized},
		{auth.ErrInvalidToken, fiber.StatusUnauthorized},
		{usecase.ErrAuthenticationRequired, fiber.StatusUnauthorized},
		{models.ErrNotFound, fiber.StatusNotFound},
		{models.ErrPermissionDenied, fiber.StatusForbidden},
		{models.ErrInvalidArgument, fiber.StatusBadRequest},
		{models.ErrBusinessLogicViolation, fiber.StatusBadRequest},
	}

	if err == nil {
		return nil
	}

	for _, mapping := range errorMapper {
		if errors.Is(err, mapping.from) {
			return fiber.NewError(mapping.to, err.Error())
		}
	}
	return err
}

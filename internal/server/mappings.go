package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/practice-sem-2/chat-service/internal/models"
)

type CreatePrivateChatRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
}

type CreateGroupChatRequest struct {
	Name           string   `json:"name" validate:"required,min=3,max=50"`
	ParticipantIDs []string `json:"participantIds" validate:"dive,required"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type RenameGroupRequest struct {
	Name string `json:"name" validate:"required,min=3,max=50"`
}

type MessagesQuery struct {
	Limit           int    `query:"limit" validate:"min=0"`
	Offset          int    `query:"offset" validate:"min=0"`
	BeforeMessageID string `query:"beforeMessageId"`
}

type ReadStatusResponse struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

func MessagesQueryToSelect(q MessagesQuery) models.MessagesSelect {
	return models.MessagesSelect{
		Limit:           uint64(q.Limit),
		Offset:          uint64(q.Offset),
		BeforeMessageID: q.BeforeMessageID,
	}
}

func ReadStatusToResponse(s *models.MessageReadStatus) ReadStatusResponse {
	return ReadStatusResponse{
		MessageID: s.MessageID,
		UserID:    s.UserID,
		ReadAt:    s.ReadAt,
	}
}

// parse decodes and validates a request body or query into req.
func (s *ChatServer) parse(c *fiber.Ctx, req interface{}, query bool) error {
	var err error
	if query {
		err = c.QueryParser(req)
	} else {
		err = c.BodyParser(req)
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request")
	}

	if err = s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

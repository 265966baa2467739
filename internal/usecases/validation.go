package usecases

import (
	"github.com/google/uuid"
	"github.com/practice-sem-2/chat-service/internal/models"
)

func ValidateUUID(rawUUID string) bool {
	_, err := uuid.Parse(rawUUID)
	return err == nil
}

// normalizeSelect applies the default page size and caps the limit. A cursor
// that isn't a message id is reported like an unknown message.
func normalizeSelect(sel models.MessagesSelect) (models.MessagesSelect, error) {
	switch {
	case sel.Limit == 0:
		sel.Limit = DefaultMessagesLimit
	case sel.Limit > MaxMessagesLimit:
		sel.Limit = MaxMessagesLimit
	}

	if sel.BeforeMessageID != "" && !ValidateUUID(sel.BeforeMessageID) {
		return sel, models.ErrMessageNotFound
	}
	return sel, nil
}

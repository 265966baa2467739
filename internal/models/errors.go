package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrBusinessLogicViolation = errors.New("business logic violation")
	ErrPermissionDenied       = errors.New("user is not authorized to this action")
	ErrNotFound               = errors.New("not found")
)

var (
	ErrChatNotFound    = fmt.Errorf("%w: chat does not exist", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("%w: message does not exist", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user does not exist", ErrNotFound)
)

var (
	ErrEmptyUserID        = fmt.Errorf("%w: user id can't be empty", ErrInvalidArgument)
	ErrEmptyMessageID     = fmt.Errorf("%w: message id can't be empty", ErrInvalidArgument)
	ErrEmptyChatName      = fmt.Errorf("%w: chat name can't be empty", ErrInvalidArgument)
	ErrChatNameTooShort   = fmt.Errorf("%w: chat name must be at least %d characters", ErrInvalidArgument, ChatNameMinLength)
	ErrChatNameTooLong    = fmt.Errorf("%w: chat name can't exceed %d characters", ErrInvalidArgument, ChatNameMaxLength)
	ErrEmptyMessage       = fmt.Errorf("%w: message content can't be empty", ErrInvalidArgument)
	ErrMessageTooLong     = fmt.Errorf("%w: message content can't exceed %d characters", ErrInvalidArgument, MessageContentMaxLength)
	ErrMessageWithoutChat = fmt.Errorf("%w: message must belong to either a private chat or a group chat", ErrInvalidArgument)
	ErrMalformedChat      = fmt.Errorf("%w: private chat must have exactly 2 participants", ErrInvalidArgument)
)

var (
	ErrSameParticipant      = fmt.Errorf("%w: private chat can't have the same user twice", ErrBusinessLogicViolation)
	ErrPrivateChatExists    = fmt.Errorf("%w: private chat for these users already exists", ErrBusinessLogicViolation)
	ErrDuplicateParticipant = fmt.Errorf("%w: group chat can't have duplicate participants", ErrBusinessLogicViolation)
	ErrAlreadyParticipant   = fmt.Errorf("%w: user is already a participant in this chat", ErrBusinessLogicViolation)
	ErrNotParticipant       = fmt.Errorf("%w: user is not a participant in this chat", ErrBusinessLogicViolation)
	ErrInactiveParticipant  = fmt.Errorf("%w: inactive participants can't be made admin", ErrBusinessLogicViolation)
	ErrNotAdmin             = fmt.Errorf("%w: user is not an admin", ErrBusinessLogicViolation)
	ErrLastAdmin            = fmt.Errorf("%w: can't remove the only admin from the group", ErrBusinessLogicViolation)

	ErrAdminRequired = fmt.Errorf("%w: only admins can manage the group", ErrPermissionDenied)
)

package storage

import (
	"errors"

	"github.com/jackc/pgconn"
)

const (
	PrivateChatsPrimaryKey        = "private_chats_pkey"
	PrivateChatsUsersUnique       = "private_chats_users_unique"
	PrivateChatsLowUserForeign    = "private_chats_user_low_fkey"
	PrivateChatsHighUserForeign   = "private_chats_user_high_fkey"
	PrivateChatMembersUserForeign = "private_chat_members_user_id_fkey"
	GroupChatsPrimaryKey          = "group_chats_pkey"
	GroupChatMembersUserForeign   = "group_chat_members_user_id_fkey"
	MessagesPrimaryKey            = "messages_pkey"
	MessagesSenderForeignKey      = "messages_sender_id_fkey"
	MessagesPrivateChatForeignKey = "messages_private_chat_id_fkey"
	MessagesGroupChatForeignKey   = "messages_group_chat_id_fkey"
	ReadStatusMessageForeignKey   = "message_read_status_message_id_fkey"
	ReadStatusUserForeignKey      = "message_read_status_user_id_fkey"
)

func GetPgxConstraintName(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}

	return pgErr.ConstraintName
}

package services

import (
	"github.com/yungbote/pulse-backend/internal/platform/apierr"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
)

var (
	ErrTokenMissing   = apierr.Unauthorized("token_missing", "authentication token is required")
	ErrTokenInvalid   = apierr.Unauthorized("token_invalid", "invalid or expired token")
	ErrUserInactive   = apierr.Unauthorized("user_inactive", "user not found or inactive")
	ErrNotParticipant = apierr.Forbidden("not_participant", "you are not a participant in this chat")

	ErrChatNotFound         = apierr.NotFound("chat_not_found", "Chat not found")
	ErrMessageNotFound      = apierr.NotFound("message_not_found", protocol.MsgMessageNotFound)
	ErrNotificationNotFound = apierr.NotFound("notification_not_found", protocol.MsgNotificationAbsent)
	ErrUserNotFound         = apierr.NotFound("user_not_found", "User not found")

	ErrEmptyContent       = apierr.BadRequest("empty_content", protocol.MsgEmptyContent)
	ErrContentTooLong     = apierr.BadRequest("content_too_long", "Message content cannot exceed 1000 characters")
	ErrOwnMessage         = apierr.BadRequest("own_message", protocol.MsgOwnMessage)
	ErrInvalidStatus      = apierr.BadRequest("invalid_status", "Invalid message status")
	ErrInvalidMessageType = apierr.BadRequest("invalid_message_type", "Invalid message type")
	ErrDirectParticipants = apierr.BadRequest("direct_participants", "Direct chats must have exactly one other participant")
	ErrGroupParticipants  = apierr.BadRequest("group_participants", "Group chats must have at least two other participants")
	ErrTooManyMembers     = apierr.BadRequest("too_many_participants", "Group chats cannot have more than 50 participants")
	ErrUnknownUsers       = apierr.BadRequest("unknown_users", "Some participants do not exist or are inactive")
	ErrNotGroupChat       = apierr.BadRequest("not_group_chat", "This operation is only allowed for group chats")
	ErrInvalidChatName    = apierr.BadRequest("invalid_chat_name", "Chat name must be between 1 and 100 characters")
	ErrRemoveSelf         = apierr.BadRequest("remove_self", "Use leave chat to remove yourself")
	ErrAlreadyParticipant = apierr.Conflict("already_participant", "User is already a participant")
	ErrAllTypesDisabled   = apierr.BadRequest("all_types_disabled", "At least one notification type must be enabled")
	ErrInvalidNotifyInput = apierr.BadRequest("invalid_notification", "Invalid notification")
)

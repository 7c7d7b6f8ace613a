package apperr

var (
	// Domain errors — used in repositories/handlers
	ErrUserNotFound         = NotFound("user not found")
	ErrRequestNotFound      = NotFound("friend request not found")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrSelfTarget           = InvalidArg("cannot target yourself")
	ErrAlreadyFriends       = AlreadyExists("already friends")
	ErrRequestExists        = AlreadyExists("friend request already exists")
	ErrRequestResponded     = FailedPrecondition("friend request already responded")
	ErrNotRecipient         = Forbidden("you can only respond to requests sent to you")
	ErrNotParticipant       = Forbidden("not a conversation participant")
	ErrEmptyBody            = InvalidArg("message body required")
	ErrTiflOnly             = Forbidden("only tifls may use friend requests")
)

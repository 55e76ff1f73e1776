package aitown

import "errors"

// Domain error kinds. These never escape ApplyInput as Go errors:
// the dispatcher converts every one of them into a ReturnValue of kind
// "error", keeping every handler total.
var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInactiveID         = errors.New("inactive id")
	ErrBlockedDestination = errors.New("destination is blocked")
	ErrPathExhausted      = errors.New("no path could be planned")
	ErrConversationFull   = errors.New("conversation already has two members")
	ErrDuplicateJoin      = errors.New("player already joined this conversation")
	ErrNoRoute            = errors.New("no route to destination")
	ErrNotParticipating   = errors.New("player is not a participating member of this conversation")
	ErrConversationOver   = errors.New("conversation has already finished")
	ErrUnknownInput       = errors.New("unknown input name")
)

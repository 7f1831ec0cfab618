package login

import "fmt"

// RejectionCode - причина отказа, отправляется клиенту в MsgConnectEx.
type RejectionCode uint32

const (
	RejectNone          RejectionCode = 0
	InvalidPassword     RejectionCode = 1
	ServerDown          RejectionCode = 10
	PleaseTryAgainLater RejectionCode = 11
	AccountBanned       RejectionCode = 12
	InvalidAccount      RejectionCode = 57
)

func (c RejectionCode) String() string {
	switch c {
	case RejectNone:
		return "NONE"
	case InvalidPassword:
		return "INVALID_PASSWORD"
	case ServerDown:
		return "SERVER_DOWN"
	case PleaseTryAgainLater:
		return "PLEASE_TRY_AGAIN_LATER"
	case AccountBanned:
		return "ACCOUNT_BANNED"
	case InvalidAccount:
		return "INVALID_ACCOUNT"
	default:
		return fmt.Sprintf("REJECTION(%d)", uint32(c))
	}
}

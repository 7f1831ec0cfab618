package login

// AuthState represents the authentication state machine of one connection.
type AuthState int

const (
	StateReceived       AuthState = iota // MsgAccount decoded
	StateAccountLookup                   // account fetched by username
	StatePasswordCheck                   // salted hash compared
	StateBanCheck                        // status flag checked
	StateRealmLookup                     // realm resolved by name
	StateVipLookup                       // VIP tier resolved (default 0)
	StateDuplicateCheck                  // session directory consulted
	StateSessionCreated                  // user registered, handoff sent
	StateRejected                        // terminal failure
)

func (s AuthState) String() string {
	switch s {
	case StateReceived:
		return "RECEIVED"
	case StateAccountLookup:
		return "ACCOUNT_LOOKUP"
	case StatePasswordCheck:
		return "PASSWORD_CHECK"
	case StateBanCheck:
		return "BAN_CHECK"
	case StateRealmLookup:
		return "REALM_LOOKUP"
	case StateVipLookup:
		return "VIP_LOOKUP"
	case StateDuplicateCheck:
		return "DUPLICATE_CHECK"
	case StateSessionCreated:
		return "SESSION_CREATED"
	case StateRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s AuthState) Terminal() bool {
	return s == StateSessionCreated || s == StateRejected
}

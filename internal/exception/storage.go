package exception

var (
	ErrStrategyInvalid  = newKind(ErrConfiguration, "strategy: invalid definition")
	ErrUnknownIndicator = newKind(ErrConfiguration, "strategy: unknown indicator")
	ErrNoMaster         = newKind(ErrConfiguration, "accounts: no master account")
	ErrAccountExists    = newKind(ErrInvalidArgument, "accounts: account already exists")
	ErrAccountNotFound  = newKind(ErrInvalidArgument, "accounts: account not found")
	ErrStoreClosed      = newKind(ErrPersistence, "store: closed")
)

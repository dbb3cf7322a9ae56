package exception

var (
	ErrAuthFailed     = newKind(ErrTransientIO, "broker: authentication failed")
	ErrSessionClosed  = newKind(ErrTransientIO, "broker: session closed")
	ErrUnknownSymbol  = newKind(ErrTransientIO, "market data: unknown symbol")
	ErrNotEnoughBars  = newKind(ErrTransientIO, "market data: not enough bars")
	ErrUnknownAccount = newKind(ErrConfiguration, "broker: unknown account")
)

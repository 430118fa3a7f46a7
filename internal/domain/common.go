package domain

// PositionSide represents the direction of a position (LONG or SHORT).
type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// Opposite returns the opposing side.
func (s PositionSide) Opposite() PositionSide {
	if s == Long {
		return Short
	}
	return Long
}

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// EntryOrderSide returns the order side used to open a position on the given side.
func EntryOrderSide(side PositionSide) OrderSide {
	if side == Long {
		return Buy
	}
	return Sell
}

// MarketActionType classifies a market signal as an entry or an exit.
type MarketActionType string

const (
	ActionEntry MarketActionType = "ENTRY"
	ActionExit  MarketActionType = "EXIT"
)

// SignalType is the explicit enumerated tag carried on an evaluation result.
type SignalType string

const (
	SignalLongEntry  SignalType = "LONG_ENTRY"
	SignalLongExit   SignalType = "LONG_EXIT"
	SignalShortEntry SignalType = "SHORT_ENTRY"
	SignalShortExit  SignalType = "SHORT_EXIT"
)

// Side returns the position side the signal refers to.
func (t SignalType) Side() PositionSide {
	switch t {
	case SignalLongEntry, SignalLongExit:
		return Long
	default:
		return Short
	}
}

// Action returns the action type the signal refers to.
func (t SignalType) Action() MarketActionType {
	switch t {
	case SignalLongEntry, SignalShortEntry:
		return ActionEntry
	default:
		return ActionExit
	}
}

// IsEntry reports whether the signal opens a position.
func (t SignalType) IsEntry() bool {
	return t.Action() == ActionEntry
}

// CandleIndex selects a candle within an indicator table, counted from the end.
type CandleIndex int

const (
	// CandlePrev is the candle before the most recent one.
	CandlePrev CandleIndex = -2
	// CandleLast is the most recent fully computed candle.
	CandleLast CandleIndex = -1
)

// OpenPositionResultType classifies the outcome of an open-position request.
// Business-rule outcomes are values of this type, never errors.
type OpenPositionResultType string

const (
	OpenResultSuccess                       OpenPositionResultType = "SUCCESS"
	OpenResultAlreadyOpen                   OpenPositionResultType = "ALREADY_OPEN"
	OpenResultMaxConcurrentPositionsReached OpenPositionResultType = "MAX_CONCURRENT_POSITIONS_REACHED"
	OpenResultNoFunds                       OpenPositionResultType = "NO_FUNDS"
)

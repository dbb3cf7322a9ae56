package indicator

// MACD tracks the fast/slow EMA spread and its signal EMA.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	line   float64
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)
	if !m.slow.Ready() || !m.fast.Ready() {
		return
	}
	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)
}

// Line is the MACD line (fast EMA minus slow EMA).
func (m *MACD) Line() float64 { return m.line }

func (m *MACD) Signal() float64 { return m.signal.Value() }

func (m *MACD) Ready() bool { return m.signal.Ready() }

// MACDLookback is the number of bars needed before Ready reports true.
func MACDLookback(fast, slow, signal int) int {
	longest := slow
	if fast > longest {
		longest = fast
	}
	return longest + signal - 1
}

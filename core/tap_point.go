package core

import "fmt"

// TapPoint is a named observation point in the RF chain. The numeric
// order encodes chain position: receive taps run antenna-side to IF,
// transmit taps run modulator to radiated.
type TapPoint int

const (
	TapRxRFPreOMT TapPoint = iota
	TapRxRFPostOMT
	TapRxRFPostLNA
	TapRxIF
	TapTxIF
	TapTxRFPostBUC
	TapTxRFPostHPA
	TapTxRFPostOMT
)

var tapPointNames = map[TapPoint]string{
	TapRxRFPreOMT:  "RX_RF_PRE_OMT",
	TapRxRFPostOMT: "RX_RF_POST_OMT",
	TapRxRFPostLNA: "RX_RF_POST_LNA",
	TapRxIF:        "RX_IF",
	TapTxIF:        "TX_IF",
	TapTxRFPostBUC: "TX_RF_POST_BUC",
	TapTxRFPostHPA: "TX_RF_POST_HPA",
	TapTxRFPostOMT: "TX_RF_POST_OMT",
}

func (tp TapPoint) String() string {
	if name, ok := tapPointNames[tp]; ok {
		return name
	}
	return fmt.Sprintf("TapPoint(%d)", int(tp))
}

// IsReceive reports whether the tap sits on the receive side of the chain.
func (tp TapPoint) IsReceive() bool {
	return tp >= TapRxRFPreOMT && tp <= TapRxIF
}

// IsValid reports whether the tap is one of the enumerated chain positions.
func (tp TapPoint) IsValid() bool {
	_, ok := tapPointNames[tp]
	return ok
}

// TapPointFromString maps a wire/scenario name back to a TapPoint.
func TapPointFromString(s string) (TapPoint, bool) {
	for tp, name := range tapPointNames {
		if name == s {
			return tp, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler so snapshots serialize
// taps by name rather than by position.
func (tp TapPoint) MarshalText() ([]byte, error) {
	if !tp.IsValid() {
		return nil, fmt.Errorf("invalid tap point %d", int(tp))
	}
	return []byte(tp.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (tp *TapPoint) UnmarshalText(text []byte) error {
	parsed, ok := TapPointFromString(string(text))
	if !ok {
		return fmt.Errorf("unknown tap point %q", string(text))
	}
	*tp = parsed
	return nil
}

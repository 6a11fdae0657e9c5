package domain

// ExitReason tags why a position was closed.
type ExitReason int

const (
	// ExitResolution settles at the instrument's terminal value.
	ExitResolution ExitReason = iota
	// ExitTakeProfit crossed the take-profit threshold.
	ExitTakeProfit
	// ExitStopLoss crossed the stop-loss threshold.
	ExitStopLoss
	// ExitTimeout exceeded the maximum holding duration.
	ExitTimeout
	// ExitMakerFill is a probabilistic fill at the quoted ask.
	ExitMakerFill
	// ExitMakerStop is the tighter maker stop-loss.
	ExitMakerStop
	// ExitMakerTimeout is the maker forced exit at a discount.
	ExitMakerTimeout
	// ExitRunEnd force-closes remaining positions at run end.
	ExitRunEnd
)

// String returns the string representation of the exit reason.
func (r ExitReason) String() string {
	switch r {
	case ExitResolution:
		return "RESOLUTION"
	case ExitTakeProfit:
		return "TAKE_PROFIT"
	case ExitStopLoss:
		return "STOP_LOSS"
	case ExitTimeout:
		return "TIMEOUT"
	case ExitMakerFill:
		return "MAKER_FILL"
	case ExitMakerStop:
		return "MAKER_STOP"
	case ExitMakerTimeout:
		return "MAKER_TIMEOUT"
	case ExitRunEnd:
		return "RUN_END"
	default:
		return "unknown"
	}
}

package budget

// AlertState is the position of the spend ratio relative to the two
// notification thresholds.
type AlertState int

const (
	Below80 AlertState = iota
	At80
	At100
)

// Alert names a threshold crossing worth notifying about.
type Alert string

const (
	AlertWarning80   Alert = "budget-warning-80"
	AlertExceeded100 Alert = "budget-exceeded-100"
)

const (
	warnThreshold   = 0.8
	exceedThreshold = 1.0
)

// AlertMachine latches threshold crossings so each alert fires at most once
// per upward crossing. Dropping back below a threshold re-arms it; sustained
// ratios above a threshold stay silent.
type AlertMachine struct {
	state AlertState
}

func NewAlertMachine() *AlertMachine {
	return &AlertMachine{state: Below80}
}

func (m *AlertMachine) State() AlertState { return m.state }

// Observe moves the machine to the state implied by ratio and returns the
// alerts fired by this observation, in threshold order.
func (m *AlertMachine) Observe(ratio float64) []Alert {
	target := Below80
	switch {
	case ratio >= exceedThreshold:
		target = At100
	case ratio >= warnThreshold:
		target = At80
	}

	var fired []Alert
	if target >= At80 && m.state < At80 {
		fired = append(fired, AlertWarning80)
	}
	if target >= At100 && m.state < At100 {
		fired = append(fired, AlertExceeded100)
	}
	m.state = target
	return fired
}

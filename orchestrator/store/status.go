package store

// TxStatus is a node of the transaction state machine:
//
//	pending -> preparing -> prepared -> submitted -> confirmed
//	   \___________\___________\___________\------> failed
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusPreparing TxStatus = "preparing"
	StatusPrepared  TxStatus = "prepared"
	StatusSubmitted TxStatus = "submitted"
	StatusConfirmed TxStatus = "confirmed"
	StatusFailed    TxStatus = "failed"
)

var statusRank = map[TxStatus]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusPrepared:  2,
	StatusSubmitted: 3,
	StatusConfirmed: 4,
}

// IsTerminal reports whether s is absorbing.
func (s TxStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s TxStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal single step. Every
// non-terminal state may fail; otherwise only the next state is reachable.
func CanTransition(from, to TxStatus) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return statusRank[to] == statusRank[from]+1
}

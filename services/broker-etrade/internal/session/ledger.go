package session

import "github.com/klinvest/broker-etrade/pkg/models"

// Ledger records the orders submitted through this process. It has no lock
// of its own; the owning Session serializes access.
type Ledger struct {
	orders      map[string]models.Order
	submissions uint64
}

func NewLedger() *Ledger {
	return &Ledger{orders: make(map[string]models.Order)}
}

// Insert tracks an accepted order and returns the submission count.
func (l *Ledger) Insert(order models.Order) uint64 {
	l.orders[order.ID] = order
	l.submissions++
	return l.submissions
}

// Lookup returns a tracked order. It never contacts E*TRADE.
func (l *Ledger) Lookup(id string) (models.Order, bool) {
	order, ok := l.orders[id]
	return order, ok
}

func (l *Ledger) Len() int {
	return len(l.orders)
}

func (l *Ledger) Submissions() uint64 {
	return l.submissions
}

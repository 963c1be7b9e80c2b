package book

import "github.com/shopspring/decimal"

// Level is a FIFO queue of resting orders at a single price.
// TotalQty caches the sum of remaining quantities across the queue.
type Level struct {
	Price decimal.Decimal
	Key   int64 // price in pips, the tree key

	head *Order
	tail *Order

	TotalQty   decimal.Decimal
	OrderCount int
}

// Enqueue 追加到队尾，时间优先级由调用方的 SeqID 保证。
func (l *Level) Enqueue(o *Order) {
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	o.lvl = l
	l.TotalQty = l.TotalQty.Add(o.Remaining)
	l.OrderCount++
}

// Unlink removes o from the queue in O(1). o must be on this level.
func (l *Level) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.lvl = nil
	l.TotalQty = l.TotalQty.Sub(o.Remaining)
	l.OrderCount--
}

// Reduce shrinks a resting order's remaining quantity and the level
// aggregate by qty. The caller guarantees qty <= o.Remaining.
func (l *Level) Reduce(o *Order, qty decimal.Decimal) {
	o.Remaining = o.Remaining.Sub(qty)
	l.TotalQty = l.TotalQty.Sub(qty)
}

// Head is the next order to fill at this price.
func (l *Level) Head() *Order {
	return l.head
}

// Empty reports whether the queue has no orders left.
func (l *Level) Empty() bool {
	return l.head == nil
}

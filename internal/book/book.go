// Package book implements a single-instrument limit order book with
// price-time priority matching. The microstructure model treats it as the
// matching capability: orders go in, fills come out, resting liquidity stays
// behind.
package book

import (
	"sort"
)

type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

type Kind uint8

const (
	KindMarket Kind = iota
	KindLimit
)

func (k Kind) String() string {
	if k == KindLimit {
		return "limit"
	}
	return "market"
}

// Order is a trade intent submitted to the book. Qty is mutated during
// matching and holds the remaining size afterwards.
type Order struct {
	ID       string
	TraderID string
	Side     Side
	Kind     Kind
	Price    float64 // limit price; ignored for market orders
	Qty      float64
	seq      uint64
}

// Fill records one execution against a resting order. Price is always the
// resting order's price.
type Fill struct {
	Qty          float64
	Price        float64
	TakerID      string
	MakerID      string
	MakerOrderID string
}

// level holds the FIFO queue of resting orders at one price.
type level struct {
	price  float64
	orders []*Order
}

func (l *level) qty() float64 {
	var total float64
	for _, o := range l.orders {
		total += o.Qty
	}
	return total
}

// Book is the per-instrument order book. Bids are kept sorted best (highest)
// first, asks best (lowest) first. Not safe for concurrent use; the
// simulation core is single-threaded by construction.
type Book struct {
	bids []*level
	asks []*level
	byID map[string]*Order
	seq  uint64
}

func New() *Book {
	return &Book{byID: make(map[string]*Order)}
}

// Submit matches the order against resting contra liquidity and returns the
// fills, best price first, FIFO within a price level. A limit remainder
// rests in the book; a market remainder is discarded.
func (b *Book) Submit(o Order) []Fill {
	if o.Qty <= 0 {
		return nil
	}
	b.seq++
	o.seq = b.seq

	var fills []Fill
	if o.Side == SideBuy {
		fills = b.cross(&o, &b.asks, func(best float64) bool {
			return o.Kind == KindMarket || o.Price >= best
		})
	} else {
		fills = b.cross(&o, &b.bids, func(best float64) bool {
			return o.Kind == KindMarket || o.Price <= best
		})
	}

	if o.Qty > 0 && o.Kind == KindLimit {
		b.rest(&o)
	}
	return fills
}

// cross walks the contra side while the taker is marketable, consuming
// resting orders in price-time priority.
func (b *Book) cross(taker *Order, contra *[]*level, marketable func(best float64) bool) []Fill {
	var fills []Fill
	for taker.Qty > 0 && len(*contra) > 0 {
		best := (*contra)[0]
		if !marketable(best.price) {
			break
		}
		for taker.Qty > 0 && len(best.orders) > 0 {
			maker := best.orders[0]
			qty := taker.Qty
			if maker.Qty < qty {
				qty = maker.Qty
			}
			taker.Qty -= qty
			maker.Qty -= qty
			fills = append(fills, Fill{
				Qty:          qty,
				Price:        best.price,
				TakerID:      taker.TraderID,
				MakerID:      maker.TraderID,
				MakerOrderID: maker.ID,
			})
			if maker.Qty <= 0 {
				best.orders = best.orders[1:]
				delete(b.byID, maker.ID)
			}
		}
		if len(best.orders) == 0 {
			*contra = (*contra)[1:]
		}
	}
	return fills
}

// rest places the remaining limit quantity at its price level, creating the
// level if needed.
func (b *Book) rest(o *Order) {
	side := &b.asks
	cmp := func(i int) bool { return b.asks[i].price >= o.Price }
	if o.Side == SideBuy {
		side = &b.bids
		cmp = func(i int) bool { return b.bids[i].price <= o.Price }
	}

	i := sort.Search(len(*side), cmp)
	if i < len(*side) && (*side)[i].price == o.Price {
		(*side)[i].orders = append((*side)[i].orders, o)
	} else {
		lv := &level{price: o.Price, orders: []*Order{o}}
		*side = append(*side, nil)
		copy((*side)[i+1:], (*side)[i:])
		(*side)[i] = lv
	}
	b.byID[o.ID] = o
}

// Cancel removes a resting order by id. Returns false if the id is unknown
// (already filled or never rested).
func (b *Book) Cancel(id string) bool {
	o, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)

	side := &b.asks
	if o.Side == SideBuy {
		side = &b.bids
	}
	for li, lv := range *side {
		if lv.price != o.Price {
			continue
		}
		for oi, ro := range lv.orders {
			if ro.ID == id {
				lv.orders = append(lv.orders[:oi], lv.orders[oi+1:]...)
				break
			}
		}
		if len(lv.orders) == 0 {
			*side = append((*side)[:li], (*side)[li+1:]...)
		}
		break
	}
	return true
}

// BestBid returns the highest resting buy price.
func (b *Book) BestBid() (float64, bool) {
	if len(b.bids) == 0 {
		return 0, false
	}
	return b.bids[0].price, true
}

// BestAsk returns the lowest resting sell price.
func (b *Book) BestAsk() (float64, bool) {
	if len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[0].price, true
}

// Orders returns the number of resting orders on one side.
func (b *Book) Orders(side Side) int {
	levels := b.asks
	if side == SideBuy {
		levels = b.bids
	}
	n := 0
	for _, lv := range levels {
		n += len(lv.orders)
	}
	return n
}

// Depth returns the total resting quantity on one side.
func (b *Book) Depth(side Side) float64 {
	levels := b.asks
	if side == SideBuy {
		levels = b.bids
	}
	var total float64
	for _, lv := range levels {
		total += lv.qty()
	}
	return total
}

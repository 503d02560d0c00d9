package domain

// Kind classifies what an announcement title asks us to do.
type Kind int

const (
	KindNone Kind = iota
	KindListing
	KindDelisting
)

func (k Kind) String() string {
	switch k {
	case KindListing:
		return "LISTING"
	case KindDelisting:
		return "DELISTING"
	default:
		return "NONE"
	}
}

// Side is the entry direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the closing side for a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Side maps a decision kind to an entry direction.
// Listings are bought, delistings are sold.
func (k Kind) Side() Side {
	if k == KindDelisting {
		return SideSell
	}
	return SideBuy
}

// Decision is the pure output of the decision engine: what happened
// and which base tickers it affects. Bases are upper-cased, deduplicated
// and sorted; evaluation order across bases carries no meaning.
type Decision struct {
	Kind  Kind
	Bases []string
}

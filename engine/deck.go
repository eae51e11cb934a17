package engine

// Deck composition. Every game starts from the same 158 cards and the
// total across hands, draw pile and discard pile never changes.
//
//	digits 0-9        x 4 colors x 2 = 80
//	skip, reverse,
//	drain, overload,
//	wipe, block       x 4 colors x 2 = 48
//	lock              x 4 colors x 3 = 12
//	wild, bigdraw,
//	steal, swap       x 4 copies     = 16
//	copy              x 2 copies     =  2
const DeckSize = 158

var digitValues = [10]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// coloredSpecials maps each color-bound special value to its kind and
// the number of copies per color.
var coloredSpecials = []struct {
	value  string
	kind   Kind
	copies int
}{
	{ValueSkip, KindAction, 2},
	{ValueReverse, KindAction, 2},
	{ValueDrain, KindPower, 2},
	{ValueOverload, KindPower, 2},
	{ValueWipe, KindPower, 2},
	{ValueBlock, KindPower, 2},
	{ValueLock, KindPower, 3},
}

// wildSpecials maps each colorless value to its copy count.
var wildSpecials = []struct {
	value  string
	copies int
}{
	{ValueWild, 4},
	{ValueBigDraw, 4},
	{ValueSteal, 4},
	{ValueSwap, 4},
	{ValueCopy, 2},
}

// buildDeck returns a fresh, unshuffled deck of DeckSize cards.
func buildDeck() []Card {
	deck := make([]Card, 0, DeckSize)

	for _, color := range PlayColors {
		for _, v := range digitValues {
			deck = append(deck,
				Card{Color: color, Value: v, Kind: KindNumber},
				Card{Color: color, Value: v, Kind: KindNumber},
			)
		}
		for _, s := range coloredSpecials {
			for i := 0; i < s.copies; i++ {
				deck = append(deck, Card{Color: color, Value: s.value, Kind: s.kind})
			}
		}
	}
	for _, s := range wildSpecials {
		for i := 0; i < s.copies; i++ {
			deck = append(deck, Card{Color: ColorWild, Value: s.value, Kind: KindWild})
		}
	}

	return deck
}

// xorshift64 RNG — same generator the rest of the hub's engines use,
// so a uint64 seed reproduces an entire game.
func (g *Game) nextRand() uint64 {
	x := g.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.rng = x
	return x
}

// randN returns a random number in [0, n).
func (g *Game) randN(n int) int {
	return int(g.nextRand() % uint64(n))
}

// shuffle performs a Fisher-Yates shuffle in place.
func (g *Game) shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := g.randN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// reshuffleDeck refills an exhausted draw pile from the discard pile,
// leaving the top discard in place. A discard pile of one card or
// fewer cannot be reshuffled.
func (g *Game) reshuffleDeck() {
	if len(g.discard) <= 1 {
		return
	}
	top := g.discard[len(g.discard)-1]
	g.deck = append(g.deck, g.discard[:len(g.discard)-1]...)
	g.discard = g.discard[:0]
	g.discard = append(g.discard, top)
	g.shuffle(g.deck)
}

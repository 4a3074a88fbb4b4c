package models

// CardColor is one of the four playable colors, or "wild" for cards that can
// land on any color.
type CardColor string

const (
	ColorRed    CardColor = "red"
	ColorBlue   CardColor = "blue"
	ColorGreen  CardColor = "green"
	ColorYellow CardColor = "yellow"
	ColorWild   CardColor = "wild"
)

// CardValue is the face value of a card: "0".."8" or a special action value.
type CardValue string

const (
	ValueReverse CardValue = "reverse"
	ValueSkip    CardValue = "skip"
	ValuePlusOne CardValue = "plusone"
	ValueWild    CardValue = "wild"
	ValueShuffle CardValue = "shuffle"
)

// Card is an immutable value object identified by (color, value). The deck
// contains duplicates; two cards with equal color and value are the same card
// for every game rule.
type Card struct {
	Color CardColor `json:"color"`
	Value CardValue `json:"value"`
}

// IsWild reports whether the card can be played on any color.
func (c Card) IsWild() bool { return c.Color == ColorWild }

// IsAction reports whether the card triggers an effect beyond a plain advance.
func (c Card) IsAction() bool {
	switch c.Value {
	case ValueReverse, ValueSkip, ValuePlusOne, ValueWild, ValueShuffle:
		return true
	}
	return false
}

// ConcreteColors lists the colors a wild card may resolve to.
var ConcreteColors = []CardColor{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// CardList is the fixed composition of a fresh deck. Per color: one 0, two of
// each 1-8, two skip, two reverse, two plusone; plus four wild and four
// shuffle cards. 100 cards total.
var CardList = buildCardList()

func buildCardList() []Card {
	var list []Card
	numbers := []CardValue{"1", "2", "3", "4", "5", "6", "7", "8"}
	for _, color := range ConcreteColors {
		list = append(list, Card{Color: color, Value: "0"})
		for _, v := range numbers {
			list = append(list, Card{Color: color, Value: v}, Card{Color: color, Value: v})
		}
		for _, v := range []CardValue{ValueSkip, ValueReverse, ValuePlusOne} {
			list = append(list, Card{Color: color, Value: v}, Card{Color: color, Value: v})
		}
	}
	for i := 0; i < 4; i++ {
		list = append(list, Card{Color: ColorWild, Value: ValueWild})
		list = append(list, Card{Color: ColorWild, Value: ValueShuffle})
	}
	return list
}

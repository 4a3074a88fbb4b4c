package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardListComposition(t *testing.T) {
	perColor := make(map[CardColor]int)
	perValue := make(map[CardValue]int)
	for _, c := range CardList {
		perColor[c.Color]++
		perValue[c.Value]++
	}

	for _, color := range ConcreteColors {
		assert.Equal(t, 23, perColor[color], "color %s", color)
	}
	assert.Equal(t, 8, perColor[ColorWild])

	assert.Equal(t, 4, perValue["0"], "one zero per color")
	for _, v := range []CardValue{"1", "2", "3", "4", "5", "6", "7", "8"} {
		assert.Equal(t, 8, perValue[v], "two %s per color", v)
	}
	assert.Equal(t, 8, perValue[ValueSkip])
	assert.Equal(t, 8, perValue[ValueReverse])
	assert.Equal(t, 8, perValue[ValuePlusOne])
	assert.Equal(t, 4, perValue[ValueWild])
	assert.Equal(t, 4, perValue[ValueShuffle])
}

func TestCardPredicates(t *testing.T) {
	assert.True(t, Card{Color: ColorWild, Value: ValueWild}.IsWild())
	assert.True(t, Card{Color: ColorWild, Value: ValueShuffle}.IsWild())
	assert.False(t, Card{Color: ColorRed, Value: "5"}.IsWild())

	assert.True(t, Card{Color: ColorRed, Value: ValueSkip}.IsAction())
	assert.True(t, Card{Color: ColorRed, Value: ValueReverse}.IsAction())
	assert.True(t, Card{Color: ColorRed, Value: ValuePlusOne}.IsAction())
	assert.False(t, Card{Color: ColorRed, Value: "0"}.IsAction())
}

func TestProfileComplete(t *testing.T) {
	assert.False(t, Profile{}.Complete())
	assert.False(t, Profile{Nickname: "  ", Avatar: "a", MusicID: "m"}.Complete())
	assert.False(t, Profile{Nickname: "n", Avatar: "", MusicID: "m"}.Complete())
	assert.True(t, Profile{Nickname: "n", Avatar: "a", MusicID: "m"}.Complete())
}

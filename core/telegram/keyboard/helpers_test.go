package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Chunk(labels, 2))
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}, Chunk(labels, 0))
	assert.Empty(t, Chunk(nil, 3))
}

func TestReplyButtons(t *testing.T) {
	markup := ReplyButtons([]string{"Uno", "Dos"}, nil, []string{"Tres"})
	assert.True(t, markup.ResizeKeyboard)
	if assert.Len(t, markup.ReplyKeyboard, 2) {
		assert.Equal(t, "Uno", markup.ReplyKeyboard[0][0].Text)
		assert.Equal(t, "Dos", markup.ReplyKeyboard[0][1].Text)
		assert.Equal(t, "Tres", markup.ReplyKeyboard[1][0].Text)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}

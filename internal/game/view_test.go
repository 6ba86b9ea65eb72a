package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-trivia-bot/internal/model"
)

func TestAnswerCallbackRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		token := rapid.Uint64().Draw(t, "token")
		option := rapid.IntRange(0, 50).Draw(t, "option")

		gotToken, gotOption, ok := ParseAnswerCallback(AnswerCallback(token, option))
		if !ok {
			t.Fatalf("round-trip failed for token=%d option=%d", token, option)
		}
		if gotToken != token || gotOption != option {
			t.Fatalf("round-trip mismatch: got (%d, %d), want (%d, %d)", gotToken, gotOption, token, option)
		}
	})
}

func TestParseAnswerCallbackRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"ans:",
		"ans:12",
		"ans:x:0",
		"ans:12:x",
		"ans:12:-1",
		"next:12",
		"reg:join",
	}
	for _, data := range cases {
		_, _, ok := ParseAnswerCallback(data)
		assert.False(t, ok, "should reject %q", data)
	}
}

func TestNextCallbackRoundTrip(t *testing.T) {
	token, ok := ParseNextCallback(NextCallback(42))
	require.True(t, ok)
	assert.Equal(t, uint64(42), token)

	_, ok = ParseNextCallback("next:not-a-number")
	assert.False(t, ok)
	_, ok = ParseNextCallback("ans:1:2")
	assert.False(t, ok)
}

func TestJoinTeamCallbackRoundTrip(t *testing.T) {
	team, ok := ParseJoinTeamCallback(JoinTeamCallback("Reds"))
	require.True(t, ok)
	assert.Equal(t, "Reds", team)

	_, ok = ParseJoinTeamCallback("reg:team:")
	assert.False(t, ok, "empty team name is not a valid payload")
	_, ok = ParseJoinTeamCallback("reg:join")
	assert.False(t, ok)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "solo", ModeSolo.String())
	assert.Equal(t, "dm", ModeFreeForAll.String())
	assert.Equal(t, "team", ModeTeam.String())
}

func TestSortStandings(t *testing.T) {
	entries := []model.ScoreEntry{
		{Name: "carol", Points: 2},
		{Name: "bob", Points: 5},
		{Name: "alice", Points: 2},
	}
	sortStandings(entries)

	assert.Equal(t, "bob", entries[0].Name)
	// Ties break alphabetically
	assert.Equal(t, "alice", entries[1].Name)
	assert.Equal(t, "carol", entries[2].Name)
}

func TestQuestionContentChoiceButtonsCarryToken(t *testing.T) {
	q := choiceQuestion("Q?", "A", "B", "C")
	options := []string{"B", "A", "C"}

	content := questionContent(&q, 1, 5, options, 60*time.Second, 7)

	require.Len(t, content.Buttons, 3)
	for i, row := range content.Buttons {
		require.Len(t, row, 1)
		assert.Equal(t, options[i], row[0].Label)
		token, option, ok := ParseAnswerCallback(row[0].Data)
		require.True(t, ok)
		assert.Equal(t, uint64(7), token)
		assert.Equal(t, i, option)
	}
}

func TestQuestionContentTextHasNoButtons(t *testing.T) {
	q := textQuestion("Q?", "A")

	content := questionContent(&q, 2, 5, nil, 60*time.Second, 7)

	assert.Empty(t, content.Buttons)
	assert.Contains(t, content.Text, "/answer")
}

func TestResultContentLastQuestionLabel(t *testing.T) {
	sum := resultSummary{questionNumber: 5, totalQuestions: 5, correctAnswer: "A"}
	content := resultContent(sum, 9)

	require.Len(t, content.Buttons, 1)
	assert.Contains(t, content.Buttons[0][0].Label, "results")
	token, ok := ParseNextCallback(content.Buttons[0][0].Data)
	require.True(t, ok)
	assert.Equal(t, uint64(9), token)
}

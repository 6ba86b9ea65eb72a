package game

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram-trivia-bot/internal/model"
)

// Callback payloads carried by inline buttons. Answer and next payloads
// embed the question token so a press on an outdated message is detected
// by equality instead of message-ID matching.
const (
	CallbackJoin     = "reg:join"
	CallbackStartNow = "reg:start"
	CallbackFinish   = "quiz:finish"

	joinTeamPrefix = "reg:team:"
	answerPrefix   = "ans:"
	nextPrefix     = "next:"
)

// JoinTeamCallback builds the payload for a "join team" button.
func JoinTeamCallback(team string) string {
	return joinTeamPrefix + team
}

// ParseJoinTeamCallback extracts the team name from a join-team payload.
func ParseJoinTeamCallback(data string) (string, bool) {
	team, ok := strings.CutPrefix(data, joinTeamPrefix)
	return team, ok && team != ""
}

// AnswerCallback builds the payload for an answer option button.
func AnswerCallback(token uint64, option int) string {
	return fmt.Sprintf("%s%d:%d", answerPrefix, token, option)
}

// ParseAnswerCallback extracts the token and option index from an answer
// payload.
func ParseAnswerCallback(data string) (token uint64, option int, ok bool) {
	rest, found := strings.CutPrefix(data, answerPrefix)
	if !found {
		return 0, 0, false
	}
	tokStr, optStr, found := strings.Cut(rest, ":")
	if !found {
		return 0, 0, false
	}
	token, err := strconv.ParseUint(tokStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	option, err = strconv.Atoi(optStr)
	if err != nil || option < 0 {
		return 0, 0, false
	}
	return token, option, true
}

// NextCallback builds the payload for the manual "next question" button.
func NextCallback(token uint64) string {
	return fmt.Sprintf("%s%d", nextPrefix, token)
}

// ParseNextCallback extracts the token from a next-question payload.
func ParseNextCallback(data string) (uint64, bool) {
	rest, found := strings.CutPrefix(data, nextPrefix)
	if !found {
		return 0, false
	}
	token, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return token, true
}

// resultSummary is the snapshot a resolved question is reported from.
type resultSummary struct {
	questionNumber int
	totalQuestions int
	correctAnswer  string
	comment        string
	right          []string
	wrong          []string
	notAnswered    []string
	standings      []model.ScoreEntry
	teamMode       bool
}

func sortStandings(entries []model.ScoreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Name < entries[j].Name
	})
}

// registrationContent renders the live registration roster with the
// mode's join controls.
func registrationContent(s *Session, secondsLeft int) Content {
	var b strings.Builder
	switch s.Mode {
	case ModeSolo:
		fmt.Fprintf(&b, "🎮 Solo quiz «%s»\n", s.QuizName)
		fmt.Fprintf(&b, "Starting in %d seconds, or press Start now.", secondsLeft)
	case ModeTeam:
		fmt.Fprintf(&b, "🎮 Team quiz «%s» — registration open!\n", s.QuizName)
		fmt.Fprintf(&b, "Starting in %d seconds.\n\nTeams:\n", secondsLeft)
		if len(s.teams) == 0 {
			b.WriteString("—")
		} else {
			names := make([]string, 0, len(s.teams))
			for name := range s.teams {
				names = append(names, name)
			}
			sort.Strings(names)
			for i, name := range names {
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "%s: %s", name, strings.Join(s.teams[name], ", "))
			}
		}
		b.WriteString("\n\nCreate a team with /team <name>, or join one below.")
	default:
		fmt.Fprintf(&b, "🎮 Quiz «%s» — registration open!\n", s.QuizName)
		fmt.Fprintf(&b, "Starting in %d seconds.\n\nPlayers:\n", secondsLeft)
		if len(s.players) == 0 {
			b.WriteString("—")
		} else {
			names := make([]string, 0, len(s.players))
			for name := range s.players {
				names = append(names, name)
			}
			sort.Strings(names)
			for i, name := range names {
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "— %s", name)
			}
		}
	}

	return Content{
		Text:    b.String(),
		Buttons: registrationButtons(s),
	}
}

func registrationButtons(s *Session) [][]Button {
	switch s.Mode {
	case ModeSolo:
		return [][]Button{{{Label: "▶️ Start now", Data: CallbackStartNow}}}
	case ModeTeam:
		rows := make([][]Button, 0, len(s.teams)+1)
		names := make([]string, 0, len(s.teams))
		for name := range s.teams {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []Button{{Label: "Join " + name, Data: JoinTeamCallback(name)}})
		}
		rows = append(rows, []Button{{Label: "▶️ Start now", Data: CallbackStartNow}})
		return rows
	default:
		return [][]Button{
			{{Label: "✋ Join", Data: CallbackJoin}},
			{{Label: "▶️ Start now", Data: CallbackStartNow}},
		}
	}
}

// questionContent renders a question with its answer controls.
func questionContent(q *model.Question, number, total int, options []string, limit time.Duration, token uint64) Content {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ Question %d/%d\n\n%s\n\n", number, total, q.Text)
	fmt.Fprintf(&b, "⏱ %d seconds to answer", int(limit.Seconds()))
	if q.Type == model.QuestionTypeText {
		b.WriteString("\nReply to this message or use /answer <text>.")
	}

	content := Content{Text: b.String(), ImageURL: q.ImageURL}
	if q.Type == model.QuestionTypeChoice {
		rows := make([][]Button, 0, len(options))
		for i, opt := range options {
			rows = append(rows, []Button{{Label: opt, Data: AnswerCallback(token, i)}})
		}
		content.Buttons = rows
	}
	return content
}

// noticeContent renders an intermediate countdown notice.
func noticeContent(secondsLeft int) Content {
	return Content{Text: fmt.Sprintf("⏳ %d seconds left!", secondsLeft)}
}

// resultContent renders a resolved question's summary with the manual
// advance control.
func resultContent(sum resultSummary, token uint64) Content {
	var b strings.Builder
	fmt.Fprintf(&b, "⌛️ Question %d/%d is over!\n", sum.questionNumber, sum.totalQuestions)
	fmt.Fprintf(&b, "✅ Correct answer: %s\n", sum.correctAnswer)
	if sum.comment != "" {
		fmt.Fprintf(&b, "💬 %s\n", sum.comment)
	}

	label := "Answered correctly"
	if sum.teamMode {
		label = "Teams answering via captain, correctly"
	}
	fmt.Fprintf(&b, "\n%s: %s", label, listOrDash(sum.right))
	fmt.Fprintf(&b, "\nAnswered wrong: %s", listOrDash(sum.wrong))
	fmt.Fprintf(&b, "\nDid not answer: %s", listOrDash(sum.notAnswered))

	if len(sum.standings) > 0 {
		b.WriteString("\n\n📊 Standings:")
		for i, e := range sum.standings {
			fmt.Fprintf(&b, "\n%d. %s — %d", i+1, e.Name, e.Points)
		}
	}

	last := sum.questionNumber >= sum.totalQuestions
	nextLabel := "➡️ Next question"
	if last {
		nextLabel = "🏁 Show results"
	}
	return Content{
		Text: b.String(),
		Buttons: [][]Button{{
			{Label: nextLabel, Data: NextCallback(token)},
			{Label: "⏹ Finish quiz", Data: CallbackFinish},
		}},
	}
}

func listOrDash(names []string) string {
	if len(names) == 0 {
		return "—"
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// finalContent renders the end-of-session leaderboard.
func finalContent(quizName string, standings []model.ScoreEntry) Content {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 Quiz «%s» finished!\n", quizName)
	if len(standings) == 0 {
		b.WriteString("\nNobody scored this time.")
		return Content{Text: b.String()}
	}
	b.WriteString("\n🏆 Final standings:")
	for i, e := range standings {
		prefix := "🔹"
		switch i {
		case 0:
			prefix = "🥇"
		case 1:
			prefix = "🥈"
		case 2:
			prefix = "🥉"
		}
		fmt.Fprintf(&b, "\n%s %d. %s — %d", prefix, i+1, e.Name, e.Points)
	}
	return Content{Text: b.String()}
}

// abortedContent renders the empty-registration abort notice.
func abortedContent() Content {
	return Content{Text: "😔 Nobody registered — the quiz is cancelled."}
}

// cancelledContent renders the manual-stop report.
func cancelledContent(standings []model.ScoreEntry) Content {
	if len(standings) == 0 {
		return Content{Text: "🏁 The quiz was stopped. Nobody was on the scoreboard."}
	}
	var b strings.Builder
	b.WriteString("🏁 The quiz was stopped.\n\nStandings at stop:")
	for i, e := range standings {
		fmt.Fprintf(&b, "\n%d. %s — %d", i+1, e.Name, e.Points)
	}
	return Content{Text: b.String()}
}

// statusText renders /game output for any phase.
func statusText(s *Session) string {
	switch s.phase {
	case PhaseRegistering:
		secondsLeft := int(time.Until(s.regEndsAt).Seconds())
		if secondsLeft < 0 {
			secondsLeft = 0
		}
		return registrationContent(s, secondsLeft).Text
	case PhasePlaying:
		var b strings.Builder
		fmt.Fprintf(&b, "Question %d of %d is in play.", s.current+1, len(s.questions))
		if s.Mode == ModeTeam {
			b.WriteString("\nTeams:")
			names := make([]string, 0, len(s.teams))
			for name := range s.teams {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(&b, "\n%s: %s (captain %s)", name, strings.Join(s.teams[name], ", "), s.captains[name])
			}
		} else {
			fmt.Fprintf(&b, "\nAnswered correctly: %s", listOrDash(setToList(s.answeredRight)))
			fmt.Fprintf(&b, "\nAnswered wrong: %s", listOrDash(setToList(s.answeredWrong)))
		}
		return b.String()
	default:
		return "The quiz is wrapping up."
	}
}

func setToList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

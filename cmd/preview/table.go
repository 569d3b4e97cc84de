package main

import (
	"strings"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/presents"
	"github.com/ichi0g0y/present-calendar/internal/schedule"
	"github.com/ichi0g0y/present-calendar/internal/types"
	"github.com/ichi0g0y/present-calendar/internal/wheel"
	"github.com/mattn/go-runewidth"
)

var header = []string{"ID", "Title", "Unlock", "State", "Countdown", "Wheel"}

// buildRows は開封状態なし（初回表示）での各プレゼントの行を作る
func buildRows(items []types.Present, sel *wheel.Selector, now time.Time, loc *time.Location) [][]string {
	none := schedule.NewSet()
	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, header)
	for _, p := range schedule.Sort(items) {
		outcome := "-"
		if presents.OffersChoice(p) {
			if plan, err := sel.Plan(p, 0); err == nil {
				outcome = plan.Label
			}
		}
		rows = append(rows, []string{
			p.ID,
			p.DisplayTitle(),
			p.UnlockAt.In(loc).Format("2006-01-02 15:04"),
			string(schedule.Classify(p, none, now)),
			schedule.FormatCountdown(schedule.Remaining(p, now)),
			outcome,
		})
	}
	return rows
}

// fmtTable は全角文字を含んでも崩れないように runewidth で桁を揃える
func fmtTable(title string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	inner := len(widths) - 1
	for _, w := range widths {
		inner += w + 2
	}

	var b strings.Builder
	divider := "+"
	for _, w := range widths {
		divider += strings.Repeat("-", w+2) + "+"
	}
	divider += "\n"

	b.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	titleW := runewidth.StringWidth(title)
	if titleW > inner {
		title = runewidth.Truncate(title, inner, "…")
		titleW = runewidth.StringWidth(title)
	}
	left := (inner - titleW) / 2
	b.WriteString("|" + blank(left) + title + blank(inner-titleW-left) + "|\n")
	b.WriteString(divider)
	for i, row := range rows {
		b.WriteString("|")
		for j, cell := range row {
			b.WriteString(" " + cell + blank(widths[j]-runewidth.StringWidth(cell)) + " |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString(divider)
		}
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

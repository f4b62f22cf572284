package wishlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvelkov/dutybot/internal/database"
)

// Summary is the material for one ping notification.
type Summary struct {
	TotalOpen int
	ByHorizon map[string]int
	Nearest   *database.Wish
	Random    *database.Wish
}

var motivations = []string{
	"Small plans today make warm memories tomorrow.",
	"Every idea on the list is a reason to hug each other.",
	"You are building your own story, item by item.",
	"Plan a little joy and the day gets softer.",
	"A tiny wish today is comfort tomorrow.",
	"Shared plans bring you closer than any words.",
}

// BuildSummaryText renders the periodic wishlist summary message.
func BuildSummaryText(s Summary) string {
	lines := []string{"Wishlist summary"}
	lines = append(lines, fmt.Sprintf("Open: %d", s.TotalOpen))

	if len(s.ByHorizon) > 0 {
		names := make([]string, 0, len(s.ByHorizon))
		for name := range s.ByHorizon {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s — %d", name, s.ByHorizon[name]))
		}
		lines = append(lines, "By horizon: "+strings.Join(parts, ", "))
	} else {
		lines = append(lines, "By horizon: nothing marked yet.")
	}

	switch {
	case s.Nearest != nil && s.Nearest.DueDate.Valid:
		lines = append(lines, fmt.Sprintf("Nearest: %s — %s", s.Nearest.Title, s.Nearest.DueDate.String))
	case s.Nearest != nil:
		horizon := "no deadline"
		if s.Nearest.Horizon.Valid {
			horizon = s.Nearest.Horizon.String
		}
		lines = append(lines, fmt.Sprintf("Nearest: %s — %s", s.Nearest.Title, horizon))
	default:
		lines = append(lines, "Nearest: no exact dates yet.")
	}

	if s.Random != nil {
		lines = append(lines, fmt.Sprintf("Random open idea: %s", s.Random.Title))
	} else {
		lines = append(lines, "Random open idea: add your first wish!")
	}

	lines = append(lines, "Motivation: "+motivations[s.TotalOpen%len(motivations)])

	return strings.Join(lines, "\n")
}

package telegram

import (
	"fmt"
	"math"
	"strings"

	"github.com/vadimtrunov/marquee/internal/catalog"
)

// maxOverview caps the synopsis shown under a movie.
const maxOverview = 300

// mdV2Replacer escapes special characters for Telegram MarkdownV2.
var mdV2Replacer = strings.NewReplacer(
	`\`, `\\`,
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMdV2 escapes a string for safe use in Telegram MarkdownV2.
func EscapeMdV2(s string) string {
	return mdV2Replacer.Replace(s)
}

// FormatBold returns MarkdownV2 bold text.
func FormatBold(s string) string {
	return "*" + EscapeMdV2(s) + "*"
}

// FormatItalic returns MarkdownV2 italic text.
func FormatItalic(s string) string {
	return "_" + EscapeMdV2(s) + "_"
}

// RatingStars renders a 0-10 vote average as five stars.
func RatingStars(vote float64) string {
	filled := int(math.Round(vote / 2))
	filled = min(max(filled, 0), 5)
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// movieCaption renders a movie as a MarkdownV2 caption.
func movieCaption(m catalog.Movie) string {
	var sb strings.Builder
	sb.WriteString(FormatBold(m.Title))
	if len(m.ReleaseDate) >= 4 {
		sb.WriteString(" " + EscapeMdV2(fmt.Sprintf("(%s)", m.ReleaseDate[:4])))
	}
	sb.WriteString("\n")
	sb.WriteString(EscapeMdV2(fmt.Sprintf("%s %.1f", RatingStars(m.VoteAverage), m.VoteAverage)))
	if m.Overview != "" {
		sb.WriteString("\n\n")
		sb.WriteString(EscapeMdV2(truncate(m.Overview, maxOverview)))
	}
	if !m.HasTrailer() {
		sb.WriteString("\n\n")
		sb.WriteString(FormatItalic("No trailer available"))
	}
	return sb.String()
}

// truncate shortens s to at most n runes, adding an ellipsis when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

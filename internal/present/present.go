// Package present renders excuses into chat-sized text pages. Output is
// light Markdown (*bold*, _italic_) so the same page can be sent to a chat
// transport as-is or converted to HTML with HTML.
package present

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/tbourn/go-excuse-backend/internal/domain"
	"github.com/tbourn/go-excuse-backend/internal/styles"
)

// DefaultBudget keeps a page under common chat message limits with room to
// spare.
const DefaultBudget = 3700

// SituationPreviewRunes caps the situation echoed in each entry.
const SituationPreviewRunes = 100

// Item is one entry in a page.
type Item struct {
	Style     string
	Situation string
	Text      string
	Rating    *int
}

// Rendered is a finished page. Shown entries were included out of Total.
type Rendered struct {
	Text  string `json:"text"`
	Shown int    `json:"shown"`
	Total int    `json:"total"`
}

// Truncated reports whether entries were left out to respect the budget.
func (r Rendered) Truncated() bool { return r.Shown < r.Total }

// Layout is the fixed text around a page's entries.
type Layout struct {
	Header string
	Footer string
	// Empty replaces the whole page when there are no items.
	Empty string
	// Note is a format string taking (shown, total); it is appended after the
	// entries whenever some were left out.
	Note string
	// Ratings adds thumbs markers to rated entries.
	Ratings bool
}

var (
	// HistoryLayout frames a user's recent excuses.
	HistoryLayout = Layout{
		Header:  "📜 *Your history*\n\n",
		Footer:  "\n\n💡 Use /favorites to see your saved excuses",
		Empty:   "📭 Your history is empty!\n\nSend me a situation and I will write your first excuse.",
		Note:    "\n_Shown %d of %d excuses_",
		Ratings: true,
	}

	// FavoritesLayout frames a user's favorited excuses.
	FavoritesLayout = Layout{
		Header: "⭐ *Your favorites*\n\n",
		Empty:  "⭐ No favorites yet!\n\nAfter an excuse is generated, tap ⭐ to keep it.",
		Note:   "\n_Shown %d of %d favorites_",
	}
)

// Page renders items with HistoryLayout.
func Page(items []Item, budget int) Rendered {
	return HistoryLayout.Page(items, budget)
}

// Page renders the longest prefix of items whose full text, including the
// header, footer and the "shown N of M" note when it applies, fits within
// budget bytes. Entries are never cut mid-way. If not even the frame fits,
// zero entries are shown.
func (l Layout) Page(items []Item, budget int) Rendered {
	total := len(items)
	if total == 0 {
		return Rendered{Text: l.Empty}
	}

	entries := make([]string, total)
	prefix := make([]int, total+1)
	for i, it := range items {
		entries[i] = l.entry(i+1, it)
		prefix[i+1] = prefix[i] + len(entries[i])
	}

	shown := 0
	for n := total; n >= 0; n-- {
		if l.size(prefix[n], n, total) <= budget {
			shown = n
			break
		}
	}

	var b strings.Builder
	b.Grow(l.size(prefix[shown], shown, total))
	b.WriteString(l.Header)
	for _, e := range entries[:shown] {
		b.WriteString(e)
	}
	if shown < total {
		b.WriteString(l.note(shown, total))
	}
	b.WriteString(l.Footer)
	return Rendered{Text: b.String(), Shown: shown, Total: total}
}

func (l Layout) size(entryBytes, shown, total int) int {
	n := len(l.Header) + entryBytes + len(l.Footer)
	if shown < total {
		n += len(l.note(shown, total))
	}
	return n
}

func (l Layout) note(shown, total int) string {
	if l.Note == "" {
		return ""
	}
	return fmt.Sprintf(l.Note, shown, total)
}

func (l Layout) entry(n int, it Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s *%s*", n, styleEmoji(it.Style), styleName(it.Style))
	if l.Ratings && it.Rating != nil {
		switch *it.Rating {
		case domain.RatingUp:
			b.WriteString(" 👍")
		case domain.RatingDown:
			b.WriteString(" 👎")
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "   _Situation: %s_\n", escape(Preview(it.Situation, SituationPreviewRunes)))
	fmt.Fprintf(&b, "   %s\n\n", escape(it.Text))
	return b.String()
}

// Preview returns s cut to max runes, with "..." when something was cut.
func Preview(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

// Excuse is the message shown right after a generation.
func Excuse(style, text string) string {
	return fmt.Sprintf("*Style: %s %s*\n\n%s", styleEmoji(style), styleName(style), escape(text))
}

// User and model text must not open or close the page's own emphasis.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
)

func escape(s string) string { return mdEscaper.Replace(s) }

// HistoryItems adapts stored excuses for rendering.
func HistoryItems(es []domain.Excuse) []Item {
	out := make([]Item, 0, len(es))
	for _, e := range es {
		out = append(out, Item{Style: e.Style, Situation: e.OriginalMessage, Text: e.GeneratedText, Rating: e.Rating})
	}
	return out
}

// FavoriteItems adapts favorited excuses for rendering.
func FavoriteItems(fs []domain.FavoriteExcuse) []Item {
	out := make([]Item, 0, len(fs))
	for _, f := range fs {
		out = append(out, Item{Style: f.Style, Situation: f.OriginalMessage, Text: f.GeneratedText, Rating: f.Rating})
	}
	return out
}

// HTML converts a rendered page to an HTML fragment.
func HTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	return string(markdown.ToHTML([]byte(md), p, r))
}

// Stored rows may carry a style that left the catalog; show the raw id.
func styleName(id string) string {
	if s, err := styles.Resolve(id); err == nil {
		return s.Name
	}
	return id
}

func styleEmoji(id string) string {
	if s, err := styles.Resolve(id); err == nil {
		return s.Emoji
	}
	return "•"
}

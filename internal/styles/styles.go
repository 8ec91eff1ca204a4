// Package styles is the closed catalog of generation styles. Each concrete
// style carries display metadata and the prompt template used to turn a
// user's situation into a request for the generation backend.
//
// The pseudo-style Random is accepted from users but never reaches the
// generation client or the database: it is resolved to a concrete style
// with Pick before use.
package styles

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"
)

// ErrUnknownStyle is returned for any id outside the catalog.
var ErrUnknownStyle = errors.New("unknown style")

// Style identifiers.
const (
	Formal    = "formal"
	Blunt     = "blunt"
	Corporate = "corporate"
	Monk      = "monk"
	Guru      = "guru"

	// Random asks for a uniformly chosen concrete style.
	Random = "random"
)

// Style is one catalog entry.
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`

	tmpl *template.Template
}

// Label is the "emoji name" form used in rendered text.
func (s Style) Label() string { return s.Emoji + " " + s.Name }

// Prompt renders the style's template for the given situation.
func (s Style) Prompt(situation string) (string, error) {
	if s.tmpl == nil {
		return "", fmt.Errorf("%w: %q has no prompt", ErrUnknownStyle, s.ID)
	}
	var b strings.Builder
	if err := s.tmpl.Execute(&b, struct{ Situation string }{situation}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", s.ID, err)
	}
	return b.String(), nil
}

type entry struct {
	id, name, emoji, desc, prompt string
}

// Catalog order is also the order of Concrete and of the selection menu.
var entries = []entry{
	{
		id: Formal, name: "Formal", emoji: "🎩",
		desc: "Polite, restrained, impeccably worded",
		prompt: `Write a short, polite and formal excuse for the following situation.
Keep it under five sentences, avoid slang, and sound sincerely apologetic.

Situation: {{.Situation}}`,
	},
	{
		id: Blunt, name: "Blunt", emoji: "💪",
		desc: "Rough, straight to the point, with street slang",
		prompt: `Write a rough, blunt excuse full of casual street slang for the situation below.
No apologies, no politeness, just confident nonsense in two or three sentences.

Situation: {{.Situation}}`,
	},
	{
		id: Corporate, name: "Corporate", emoji: "💼",
		desc: "Business jargon, synergy and alignment",
		prompt: `Write an excuse in heavy corporate jargon for the following situation.
Mention priorities, alignment and stakeholders. Keep it to one short paragraph.

Situation: {{.Situation}}`,
	},
	{
		id: Monk, name: "Monk", emoji: "🧘",
		desc: "Calm, philosophical, a little mystical",
		prompt: `Write a calm, philosophical excuse, as a wise monk would, for the situation below.
Use a gentle metaphor and keep it to three or four sentences.

Situation: {{.Situation}}`,
	},
	{
		id: Guru, name: "Guru", emoji: "🚀",
		desc: "Self-help coach who turns failure into a growth mindset",
		prompt: `Write an excuse in the voice of an over-enthusiastic self-help guru for the situation below.
Turn the failure into a lesson about mindset and abundance. Keep it short and energetic.

Situation: {{.Situation}}`,
	},
}

var (
	byID     = map[string]Style{}
	concrete []Style
	random   = Style{ID: Random, Name: "Random", Emoji: "🎲", Description: "Let fate decide"}
)

func init() {
	for _, e := range entries {
		t := template.Must(template.New(e.id).Option("missingkey=error").Parse(e.prompt))
		s := Style{ID: e.id, Name: e.name, Emoji: e.emoji, Description: e.desc, tmpl: t}
		byID[e.id] = s
		concrete = append(concrete, s)
	}
}

// Resolve returns the catalog entry for id. Random resolves to its own
// metadata entry; callers that need a concrete style use Pick.
func Resolve(id string) (Style, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == Random {
		return random, nil
	}
	s, ok := byID[id]
	if !ok {
		return Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, id)
	}
	return s, nil
}

// IsConcrete reports whether id names a concrete (persistable) style.
func IsConcrete(id string) bool {
	_, ok := byID[id]
	return ok
}

// Concrete lists concrete styles in catalog order. The slice is a copy.
func Concrete() []Style {
	out := make([]Style, len(concrete))
	copy(out, concrete)
	return out
}

// Selectable lists what a user may choose: every concrete style, then Random.
func Selectable() []Style {
	return append(Concrete(), random)
}

// Pick returns a uniformly chosen concrete style. A nil rng uses the
// package-level source.
func Pick(rng *rand.Rand) Style {
	if rng == nil {
		return concrete[rand.IntN(len(concrete))]
	}
	return concrete[rng.IntN(len(concrete))]
}

// ResolveConcrete resolves id and replaces Random with a Pick.
func ResolveConcrete(id string, rng *rand.Rand) (Style, error) {
	s, err := Resolve(id)
	if err != nil {
		return Style{}, err
	}
	if s.ID == Random {
		return Pick(rng), nil
	}
	return s, nil
}

// MustValidate panics when the catalog is inconsistent. Called at startup.
func MustValidate() {
	if len(concrete) == 0 {
		panic("styles: empty catalog")
	}
	for _, s := range concrete {
		if s.ID == Random {
			panic("styles: random must not be a concrete style")
		}
		p, err := s.Prompt("probe")
		if err != nil || !strings.Contains(p, "probe") {
			panic(fmt.Sprintf("styles: %s prompt does not include the situation", s.ID))
		}
	}
}

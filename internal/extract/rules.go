package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/sabis-tools/sabis/internal/text"
)

// Penalty is a non-homework keyword and what it costs when found.
type Penalty struct {
	// Keyword is matched against normalised title and text
	Keyword string `toml:"keyword" validate:"required"`

	// Title is subtracted when the keyword is in the title
	Title int `toml:"title" validate:"gtefield=Text"`

	// Text is subtracted when the keyword is in the block text
	Text int `toml:"text" validate:"gte=0"`
}

// Rules is the tuning table for the assignment heuristics. Every point value,
// window size and keyword list the extractor uses lives here.
type Rules struct {
	// Keywords are the homework keywords, already in normalised form
	Keywords []string `toml:"keywords" validate:"min=1,dive,required"`

	// StrictPhrases are high-confidence phrases ("odeviniz var")
	StrictPhrases []string `toml:"strict_phrases" validate:"dive,required"`

	Penalties []Penalty `toml:"penalties" validate:"dive"`

	// DueWindow is how many characters either side of the due text count as "near"
	DueWindow int `toml:"due_window" validate:"gt=0"`

	StrictWeight   int `toml:"strict_weight" validate:"gte=0"`
	NearWeight     int `toml:"near_weight" validate:"gte=0"`
	AnywhereWeight int `toml:"anywhere_weight" validate:"gte=0"`
	TitleWeight    int `toml:"title_weight" validate:"gte=0"`
	WarningWeight  int `toml:"warning_weight" validate:"gte=0"`

	// MinCardChars is the minimum text length of a candidate element
	MinCardChars int `toml:"min_card_chars" validate:"gte=0"`

	// DueWording is the deadline wording pattern (case-insensitive)
	DueWording string `toml:"due_wording" validate:"required"`

	// WarningStyle matches inline styles that mark a card as a warning
	WarningStyle string `toml:"warning_style" validate:"required"`

	// CardSelectors are the container selectors a candidate resolves to
	CardSelectors []string `toml:"card_selectors" validate:"dive,required"`

	// ExcludedTags are element names never considered as candidates
	ExcludedTags []string `toml:"excluded_tags"`

	dueWording   *regexp.Regexp
	warningStyle *regexp.Regexp
	excluded     map[string]bool
	strict       []string
	cardSelector string
}

// DefaultRules returns the built-in tuning table.
func DefaultRules() *Rules {
	r := &Rules{
		Keywords:      []string{"odev", "homework", "assignment"},
		StrictPhrases: []string{"yeni odeviniz var", "odeviniz var", "you have a new assignment"},
		Penalties: []Penalty{
			{Keyword: "panel", Title: 2, Text: 1},
			{Keyword: "paneli", Title: 2, Text: 1},
			{Keyword: "buton", Title: 2, Text: 1},
			{Keyword: "button", Title: 2, Text: 1},
			{Keyword: "basvuru", Title: 2, Text: 1},
			{Keyword: "form", Title: 1, Text: 1},
			{Keyword: "etkinlik", Title: 2, Text: 1},
			{Keyword: "seminer", Title: 2, Text: 1},
			{Keyword: "konferans", Title: 2, Text: 1},
			{Keyword: "calistay", Title: 2, Text: 1},
			{Keyword: "workshop", Title: 2, Text: 1},
			{Keyword: "duyuru", Title: 1, Text: 1},
			{Keyword: "duyurusu", Title: 1, Text: 1},
			{Keyword: "duyurular", Title: 1, Text: 1},
		},
		DueWindow:      220,
		StrictWeight:   3,
		NearWeight:     2,
		AnywhereWeight: 1,
		TitleWeight:    1,
		WarningWeight:  1,
		MinCardChars:   12,
		DueWording:     `son teslim|teslim tarihi`,
		WarningStyle:   `warning|ffa800|fbb03b`,
		CardSelectors: []string{
			".notification",
			".notifications__item",
			".duyuru",
			".timeline-item",
			".list-group-item",
			".card",
			"article",
		},
		ExcludedTags: []string{"script", "style", "option", "select", "input", "textarea", "label", "svg", "iframe"},
	}
	if err := r.compile(); err != nil {
		panic(err)
	}
	return r
}

// LoadRules reads a TOML rules file on top of DefaultRules.
// Keys missing from the file keep their default values; lists are replaced.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r := DefaultRules()
	if err := toml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", path, err)
	}
	if err := r.compile(); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return r, nil
}

// compile validates the table and prepares the derived matchers.
func (r *Rules) compile() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}

	dueWording, err := regexp.Compile(`(?i)(` + r.DueWording + `)`)
	if err != nil {
		return fmt.Errorf("due_wording: %w", err)
	}
	warningStyle, err := regexp.Compile(`(?i)(` + r.WarningStyle + `)`)
	if err != nil {
		return fmt.Errorf("warning_style: %w", err)
	}

	r.dueWording = dueWording
	r.warningStyle = warningStyle

	r.excluded = make(map[string]bool, len(r.ExcludedTags))
	for _, tag := range r.ExcludedTags {
		r.excluded[strings.ToLower(strings.TrimSpace(tag))] = true
	}

	r.strict = make([]string, 0, len(r.StrictPhrases))
	for _, p := range r.StrictPhrases {
		r.strict = append(r.strict, text.NormaliseForMatch(p))
	}
	for i, k := range r.Keywords {
		r.Keywords[i] = text.NormaliseForMatch(k)
	}
	for i := range r.Penalties {
		r.Penalties[i].Keyword = text.NormaliseForMatch(r.Penalties[i].Keyword)
	}

	r.cardSelector = strings.Join(r.CardSelectors, ", ")
	return nil
}

// builtin is the shared default table used when callers pass nil rules.
var builtin = sync.OnceValue(DefaultRules)

// ready returns r, or the default table when r was never compiled.
func (r *Rules) ready() *Rules {
	if r == nil || r.dueWording == nil {
		return builtin()
	}
	return r
}

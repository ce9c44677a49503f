// Package question owns the fallback question bank and the generator that
// asks the language model for persona-specific questions.
package question

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
)

// DefaultTimeLimit is applied to questions that carry no time limit.
const DefaultTimeLimit = 90

//go:embed bank.yaml
var bankYAML []byte

// Entry is one catalog question.
type Entry struct {
	ID         int      `json:"id" yaml:"id"`
	Text       string   `json:"text" yaml:"text"`
	Category   string   `json:"category" yaml:"category"`
	Difficulty string   `json:"difficulty" yaml:"difficulty"`
	Personas   []string `json:"persona" yaml:"persona"`
	TimeLimit  int      `json:"timeLimit" yaml:"timeLimit"`
}

// TaggedFor reports whether the entry is tagged with personaID.
func (e Entry) TaggedFor(personaID string) bool {
	return slices.Contains(e.Personas, personaID)
}

// Question converts the entry to a session question.
func (e Entry) Question() practice.Question {
	limit := e.TimeLimit
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	return practice.Question{
		Text:       e.Text,
		Category:   e.Category,
		Difficulty: e.Difficulty,
		TimeLimit:  limit,
	}
}

// Filter narrows bank listings. Empty fields match everything.
type Filter struct {
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Persona    string `json:"persona,omitempty"`
}

func (f Filter) matches(e Entry) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, e.Category) {
		return false
	}
	if f.Difficulty != "" && f.Difficulty != e.Difficulty {
		return false
	}
	if f.Persona != "" && !e.TaggedFor(f.Persona) {
		return false
	}
	return true
}

// Bank is the static fallback catalog. It is safe for concurrent use.
type Bank struct {
	categories []string
	entries    []Entry

	mu  sync.Mutex
	rng *rand.Rand
}

// BankOption customises a Bank.
type BankOption func(*Bank)

// WithRand replaces the random source used for selection.
func WithRand(r *rand.Rand) BankOption {
	return func(b *Bank) { b.rng = r }
}

// LoadBank parses the embedded catalog.
func LoadBank(opts ...BankOption) (*Bank, error) {
	return NewBank(bankYAML, opts...)
}

// NewBank parses a YAML catalog.
func NewBank(data []byte, opts ...BankOption) (*Bank, error) {
	var doc struct {
		Categories []string `yaml:"categories"`
		Questions  []Entry  `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if len(doc.Questions) == 0 {
		return nil, errors.New("question bank is empty")
	}

	seen := make(map[int]bool, len(doc.Questions))
	for _, e := range doc.Questions {
		if strings.TrimSpace(e.Text) == "" || e.Category == "" {
			return nil, fmt.Errorf("question %d missing text or category", e.ID)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate question id %d", e.ID)
		}
		seen[e.ID] = true
	}

	seed := uint64(time.Now().UnixNano())
	b := &Bank{
		categories: doc.Categories,
		entries:    doc.Questions,
		rng:        rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Size returns the number of catalog questions.
func (b *Bank) Size() int { return len(b.entries) }

// Categories returns the catalog's category list.
func (b *Bank) Categories() []string {
	return append([]string(nil), b.categories...)
}

// List returns the entries matching f in catalog order.
func (b *Bank) List(f Filter) []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Get looks up an entry by id.
func (b *Bank) Get(id int) (Entry, bool) {
	for _, e := range b.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Random returns one entry chosen uniformly.
func (b *Bank) Random() Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[b.rng.IntN(len(b.entries))]
}

// Pick selects count distinct questions at random. Questions tagged with
// personaID come first; the rest of the bank tops up when they run short.
// It returns min(count, Size()) questions.
func (b *Bank) Pick(personaID string, count int) []practice.Question {
	if count <= 0 {
		return []practice.Question{}
	}

	var tagged, rest []Entry
	for _, e := range b.entries {
		if personaID != "" && e.TaggedFor(personaID) {
			tagged = append(tagged, e)
		} else {
			rest = append(rest, e)
		}
	}

	b.mu.Lock()
	b.shuffle(tagged)
	b.shuffle(rest)
	b.mu.Unlock()

	picked := make([]practice.Question, 0, min(count, len(b.entries)))
	for _, group := range [][]Entry{tagged, rest} {
		for _, e := range group {
			if len(picked) == count {
				return picked
			}
			picked = append(picked, e.Question())
		}
	}
	return picked
}

func (b *Bank) shuffle(entries []Entry) {
	b.rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

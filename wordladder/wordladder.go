package wordladder

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// Dictionary is a set of fixed-length lowercase words. Membership drives
// neighbor generation; insertion order is irrelevant.
type Dictionary struct {
	words map[string]bool
}

// NewDictionary creates a dictionary from a word list. Duplicates collapse
// into a single entry.
func NewDictionary(words []string) *Dictionary {
	d := &Dictionary{words: make(map[string]bool, len(words))}
	for _, w := range words {
		d.words[w] = true
	}
	return d
}

// Add inserts a word.
func (d *Dictionary) Add(word string) {
	d.words[word] = true
}

// Contains reports whether the word is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	return d.words[word]
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Words returns the dictionary contents in sorted order.
func (d *Dictionary) Words() []string {
	out := make([]string, 0, len(d.words))
	for w := range d.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Stats contains counters for a single path search.
type Stats struct {
	Expanded int // words dequeued from the frontier
	Duration time.Duration
}

// ErrNoPath reports that no transformation sequence connects the endpoints.
// It covers endpoints missing from the dictionary, which are rejected before
// the search runs, as well as an exhausted search.
var ErrNoPath = errors.New("no transformation path exists")

// Config contains configuration for word list generation.
type Config struct {
	Words      int   // number of words to generate; <= 0 means 20
	Length     int   // word length; <= 0 means 5
	RandomSeed int64 // 0 seeds from the current time
}

// DefaultConfig returns the reference configuration: 20 words of length 5.
func DefaultConfig() Config {
	return Config{Words: 20, Length: 5}
}

// Generator produces demo word lists by a random walk over same-length
// strings.
type Generator struct {
	config Config
	random *rand.Rand
}

// NewGenerator creates a generator, filling in defaults for zero-valued
// configuration fields.
func NewGenerator(config Config) *Generator {
	if config.Words <= 0 {
		config.Words = 20
	}
	if config.Length <= 0 {
		config.Length = 5
	}
	if config.RandomSeed == 0 {
		config.RandomSeed = time.Now().UnixNano()
	}
	return &Generator{
		config: config,
		random: rand.New(rand.NewSource(config.RandomSeed)),
	}
}

// GenerateWords returns the configured number of words. The first word is
// random lowercase letters; each following word rewrites one random position
// of the previous word with one random letter. The rewrite may pick the
// letter already in place, so the list can hold consecutive duplicates and
// repeated words; callers receive the raw walk. Consecutive words differ at
// most at one position, so the whole list always lies in one connected
// component of the substitution graph.
func (gen *Generator) GenerateWords() []string {
	seed := make([]byte, gen.config.Length)
	for i := range seed {
		seed[i] = letters[gen.random.Intn(len(letters))]
	}
	word := string(seed)

	words := make([]string, 0, gen.config.Words)
	words = append(words, word)
	for len(words) < gen.config.Words {
		next := []byte(word)
		next[gen.random.Intn(len(next))] = letters[gen.random.Intn(len(letters))]
		word = string(next)
		words = append(words, word)
	}
	return words
}

// Neighbors returns the dictionary words that differ from word by exactly
// one letter at one position, ordered by position and then alphabet. The
// word itself is never included.
func Neighbors(dict *Dictionary, word string) []string {
	var out []string
	b := []byte(word)
	for i := range b {
		orig := b[i]
		for c := byte('a'); c <= 'z'; c++ {
			if c == orig {
				continue
			}
			b[i] = c
			if candidate := string(b); dict.Contains(candidate) {
				out = append(out, candidate)
			}
		}
		b[i] = orig
	}
	return out
}

// searchState pairs a frontier word with the path that reached it.
type searchState struct {
	word string
	path []string
}

// FindShortestPath returns the shortest transformation sequence from start
// to end where every hop rewrites exactly one letter and every word on the
// way is in the dictionary. The search is breadth-first, so the first path
// that reaches end has minimal length; start == end yields the single-word
// path. Endpoints missing from the dictionary return ErrNoPath without
// searching.
func FindShortestPath(ctx context.Context, dict *Dictionary, start, end string) ([]string, Stats, error) {
	began := time.Now()
	stats := Stats{}
	if !dict.Contains(start) || !dict.Contains(end) {
		stats.Duration = time.Since(began)
		return nil, stats, fmt.Errorf("%w: endpoints must be dictionary words", ErrNoPath)
	}

	queue := []searchState{{word: start, path: []string{start}}}
	visited := map[string]bool{start: true}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(began)
			return nil, stats, err
		}
		state := queue[0]
		queue = queue[1:]
		stats.Expanded++
		if state.word == end {
			stats.Duration = time.Since(began)
			return state.path, stats, nil
		}
		for _, next := range Neighbors(dict, state.word) {
			if visited[next] {
				continue
			}
			visited[next] = true
			path := make([]string, len(state.path), len(state.path)+1)
			copy(path, state.path)
			queue = append(queue, searchState{word: next, path: append(path, next)})
		}
	}

	stats.Duration = time.Since(began)
	return nil, stats, ErrNoPath
}

// Package command turns free-form utterances into application actions with
// fuzzy, locale-aware matching. Recognition never needs to be exact: typos
// and transcription noise are absorbed by normalized edit distance.
package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Action identifies what a recognized command does. The same actions exist
// in every locale; only the spoken forms differ.
type Action string

const (
	ActionNavigateHome     Action = "navigate.home"
	ActionNavigateVault    Action = "navigate.vault"
	ActionNavigateBack     Action = "navigate.back"
	ActionNavigateNext     Action = "navigate.next"
	ActionNavigatePrevious Action = "navigate.previous"
	ActionCaptureStart     Action = "capture.start"
	ActionCaptureStop      Action = "capture.stop"
	ActionCapturePause     Action = "capture.pause"
	ActionCaptureResume    Action = "capture.resume"
	ActionCapturePhoto     Action = "capture.photo"
	ActionVaultSave        Action = "vault.save"
	ActionVaultDiscard     Action = "vault.discard"
	ActionVaultDelete      Action = "vault.delete"
	ActionPlaybackPlay     Action = "playback.play"
	ActionPlaybackPause    Action = "playback.pause"
	ActionPlaybackStop     Action = "playback.stop"
	ActionLocaleChange     Action = "locale.change"
)

// MatchThreshold is the minimum similarity for a fuzzy match to be accepted.
const MatchThreshold = 0.7

// maxSuggestions caps how many near-misses an unrecognized result carries.
const maxSuggestions = 3

// Result describes the outcome of dispatching one utterance.
type Result struct {
	Utterance  string  `json:"utterance"`
	Locale     string  `json:"locale"`
	Recognized bool    `json:"recognized"`
	Action     Action  `json:"action,omitempty"`
	Arg        string  `json:"arg,omitempty"`
	Phrase     string  `json:"phrase,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	// Suggestions holds up to three closest phrases when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Handler reacts to a recognized action.
type Handler func(Result)

// Dispatcher matches utterances against the active locale's phrase table and
// invokes registered handlers. Safe for concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	locale   string
	handlers map[Action]Handler
}

// NewDispatcher returns a dispatcher starting in the given locale.
func NewDispatcher(locale string) (*Dispatcher, error) {
	if _, ok := localeTables[locale]; !ok {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	return &Dispatcher{
		locale:   locale,
		handlers: make(map[Action]Handler),
	}, nil
}

// Locale returns the active locale.
func (d *Dispatcher) Locale() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.locale
}

// SetLocale switches the active phrase table.
func (d *Dispatcher) SetLocale(locale string) error {
	if _, ok := localeTables[locale]; !ok {
		return fmt.Errorf("unsupported locale %q", locale)
	}
	d.mu.Lock()
	d.locale = locale
	d.mu.Unlock()
	return nil
}

// Handle registers fn for an action, replacing any previous handler.
func (d *Dispatcher) Handle(action Action, fn Handler) {
	d.mu.Lock()
	d.handlers[action] = fn
	d.mu.Unlock()
}

// Dispatch matches the utterance and, when recognized, invokes the action's
// handler. The locale.change action is handled internally as well: a
// recognized switch phrase changes the active locale before any handler runs.
func (d *Dispatcher) Dispatch(utterance string) Result {
	d.mu.Lock()
	res := d.matchLocked(utterance)
	if res.Recognized && res.Action == ActionLocaleChange {
		if _, ok := localeTables[res.Arg]; ok {
			d.locale = res.Arg
		}
	}
	handler := d.handlers[res.Action]
	d.mu.Unlock()

	if res.Recognized && handler != nil {
		handler(res)
	}
	return res
}

// Match reports how the utterance would be interpreted without side effects.
func (d *Dispatcher) Match(utterance string) Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.matchLocked(utterance)
}

func (d *Dispatcher) matchLocked(utterance string) Result {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	res := Result{Utterance: utterance, Locale: d.locale}
	if normalized == "" {
		return res
	}

	phrases := localeTables[d.locale]

	// Containment first: a longer utterance that embeds a full phrase is an
	// unambiguous command ("please save message now").
	for _, p := range phrases {
		if strings.Contains(normalized, p.Text) {
			res.Recognized = true
			res.Action = p.Action
			res.Arg = p.Arg
			res.Phrase = p.Text
			res.Similarity = 1
			return res
		}
	}

	// Fuzzy pass: best similarity wins; on a tie the earlier phrase in the
	// table wins, so results are deterministic.
	best := -1
	bestScore := 0.0
	scores := make([]float64, len(phrases))
	for i, p := range phrases {
		s := similarity(normalized, p.Text)
		scores[i] = s
		if s > bestScore {
			bestScore = s
			best = i
		}
	}

	if best >= 0 && bestScore >= MatchThreshold {
		p := phrases[best]
		res.Recognized = true
		res.Action = p.Action
		res.Arg = p.Arg
		res.Phrase = p.Text
		res.Similarity = bestScore
		return res
	}

	// Nothing cleared the threshold: offer the closest phrases instead.
	idx := make([]int, len(phrases))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	n := maxSuggestions
	if len(idx) < n {
		n = len(idx)
	}
	for _, i := range idx[:n] {
		res.Suggestions = append(res.Suggestions, phrases[i].Text)
	}
	return res
}

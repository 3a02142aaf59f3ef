// Package theme holds the process-wide choice of target image.
package theme

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

// DefaultID is the theme used until the player picks another.
const DefaultID = "shiba7"

// Theme pairs a selectable id with the image shown for targets.
type Theme struct {
	ID       string `json:"id"`
	ImageRef string `json:"image"`
	Known    bool   `json:"known"`
}

var known = []string{"shiba1", "shiba2", "shiba3", "shiba4", "shiba5", "shiba6", "shiba7"}

// ImageRef maps an id to its image path, e.g. shiba7 -> image/Shiba7.jpeg.
// Unknown ids produce a path that may not exist; the renderer falls back
// to the default image when it fails to load.
func ImageRef(id string) string {
	if id == "" {
		return ImageRef(DefaultID)
	}
	r, size := utf8.DecodeRuneInString(id)
	return fmt.Sprintf("image/%c%s.jpeg", unicode.ToUpper(r), id[size:])
}

// IsKnown reports whether id is one of the bundled themes.
func IsKnown(id string) bool {
	for _, k := range known {
		if k == id {
			return true
		}
	}
	return false
}

// Known lists the bundled themes in picker order.
func Known() []Theme {
	out := make([]Theme, 0, len(known))
	for _, id := range known {
		out = append(out, Theme{ID: id, ImageRef: ImageRef(id), Known: true})
	}
	return out
}

// Default returns the default theme.
func Default() Theme {
	return Theme{ID: DefaultID, ImageRef: ImageRef(DefaultID), Known: true}
}

// Selector stores the current theme. It is safe for concurrent use.
type Selector struct {
	mu      sync.RWMutex
	current Theme
	log     logger.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the selector logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInitial sets the starting theme id. Empty keeps the default.
func WithInitial(id string) Option {
	return func(s *Selector) {
		if id = strings.TrimSpace(id); id != "" {
			s.current = Theme{ID: id, ImageRef: ImageRef(id), Known: IsKnown(id)}
		}
	}
}

// NewSelector creates a selector holding the default theme.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{current: Default(), log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select makes id the current theme and returns it. Unknown ids are
// accepted; the returned theme reports Known=false.
func (s *Selector) Select(id string) Theme {
	id = strings.TrimSpace(id)
	t := Theme{ID: id, ImageRef: ImageRef(id), Known: IsKnown(id)}
	if id == "" {
		t = Default()
	}

	s.mu.Lock()
	s.current = t
	s.mu.Unlock()

	metrics.RecordThemeSelection(t.Known)
	if !t.Known {
		s.log.Warn(context.Background(), "unknown theme selected", logger.String("theme", id))
	}
	return t
}

// Current returns the selected theme.
func (s *Selector) Current() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Image returns the image reference of the selected theme.
func (s *Selector) Image() string {
	return s.Current().ImageRef
}

// Next selects the theme after the current one in picker order, wrapping around.
func (s *Selector) Next() Theme {
	cur := s.Current().ID
	next := known[0]
	for i, id := range known {
		if id == cur {
			next = known[(i+1)%len(known)]
			break
		}
	}
	return s.Select(next)
}

package achievement

import (
	"errors"
	"fmt"
	"time"

	"github.com/atmx/stockquest/internal/model"
)

// ErrInvalidCatalog is returned by NewEngine for a malformed catalog.
// It is a startup configuration error, never a runtime one.
var ErrInvalidCatalog = errors.New("achievement: invalid catalog")

// Definition is an immutable catalog entry.
type Definition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Rule        Rule   `json:"rule"`
}

// Engine holds a validated catalog. It keeps no runtime state of its own;
// unlock state is passed in and returned by Evaluate.
type Engine struct {
	catalog []Definition
}

// NewEngine validates catalog and returns an engine over it.
func NewEngine(catalog []Definition) (*Engine, error) {
	seen := make(map[string]bool, len(catalog))
	for _, def := range catalog {
		if def.ID == "" {
			return nil, fmt.Errorf("%w: entry with empty id", ErrInvalidCatalog)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, def.ID)
		}
		seen[def.ID] = true

		if err := validateRule(def.Rule); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, def.ID, err)
		}
	}

	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return &Engine{catalog: out}, nil
}

func validateRule(r Rule) error {
	switch r.Kind {
	case KindTradeCount:
		if r.Side != "" && !r.Side.Valid() {
			return fmt.Errorf("unknown side %q", r.Side)
		}
		fallthrough
	case KindDiversification, KindSectorCoverage, KindProfitableSale:
		if r.Target <= 0 {
			return fmt.Errorf("%s needs a positive target", r.Kind)
		}
	case KindPortfolioValue:
		if !r.Threshold.IsPositive() {
			return fmt.Errorf("%s needs a positive threshold", r.Kind)
		}
	case KindHoldingDuration:
		if r.Duration < time.Second {
			return fmt.Errorf("%s needs a duration of at least one second", r.Kind)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

// Catalog returns the catalog definitions in order.
func (e *Engine) Catalog() []Definition {
	out := make([]Definition, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Initial returns the all-locked state for a new session.
func (e *Engine) Initial() []model.Achievement {
	out := make([]model.Achievement, 0, len(e.catalog))
	for _, def := range e.catalog {
		a := def.locked()
		if t, ok := def.Rule.target(); ok {
			a.Progress, a.Target = ptr(0), ptr(t)
		}
		out = append(out, a)
	}
	return out
}

// Evaluate re-evaluates every rule against snap and merges the result into
// state. It returns the updated state in catalog order and the achievements
// that unlocked in this call, also in catalog order.
//
// Unlocking is a one-way latch: an unlocked entry in state is never relocked
// nor reported again. Progress of a locked entry never decreases.
func (e *Engine) Evaluate(snap Snapshot, state []model.Achievement) (updated, newly []model.Achievement) {
	prior := make(map[string]model.Achievement, len(state))
	for _, a := range state {
		prior[a.ID] = a
	}

	updated = make([]model.Achievement, 0, len(e.catalog))
	for _, def := range e.catalog {
		cur := def.locked()
		prev, known := prior[def.ID]

		if known && prev.Unlocked {
			cur.Unlocked = true
			cur.UnlockedAt = copyTime(prev)
			if t, ok := def.Rule.target(); ok {
				cur.Progress, cur.Target = ptr(t), ptr(t)
			}
			updated = append(updated, cur)
			continue
		}

		out := def.Rule.evaluate(snap)
		if out.tracked {
			p := min(max(out.progress, 0), out.target)
			if known && prev.Progress != nil && *prev.Progress > p {
				p = min(*prev.Progress, out.target)
			}
			cur.Progress, cur.Target = ptr(p), ptr(out.target)
		}

		if out.met {
			at := snap.At
			cur.Unlocked = true
			cur.UnlockedAt = &at
			if out.tracked {
				cur.Progress = ptr(out.target)
			}
			newly = append(newly, cur)
		}
		updated = append(updated, cur)
	}
	return updated, newly
}

func (d Definition) locked() model.Achievement {
	return model.Achievement{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Icon:        d.Icon,
	}
}

// target reports the progress target of rules that track partial progress.
func (r Rule) target() (int64, bool) {
	switch r.Kind {
	case KindTradeCount, KindDiversification, KindSectorCoverage, KindProfitableSale:
		return r.Target, true
	case KindHoldingDuration:
		return int64(r.Duration / time.Second), true
	}
	return 0, false
}

func ptr(v int64) *int64 { return &v }

func copyTime(a model.Achievement) *time.Time {
	if a.UnlockedAt == nil {
		return nil
	}
	t := *a.UnlockedAt
	return &t
}

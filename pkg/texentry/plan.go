package texentry

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

// Step is one node of an integrity plan. Reads and Writes are absolute byte
// ranges the step consumes and produces.
type Step struct {
	Name      string
	DependsOn []string
	Reads     []Range
	Writes    []Range
	Run       func(buf *OutputBuffer) error
}

// Plan is a dependency-ordered list of steps. The order is fixed when the
// plan is built and checked before anything runs.
type Plan struct {
	steps []Step
}

// NewPlan orders steps topologically. Among steps whose dependencies are
// satisfied, the one declared first runs first, so the order is
// deterministic. The ordered plan is then validated.
func NewPlan(steps ...Step) (*Plan, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("step %d has no name: %w", i, dxmerrors.ErrPlanOrder)
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate step %q: %w", s.Name, dxmerrors.ErrPlanOrder)
		}
		index[s.Name] = i
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("step %q depends on unknown step %q: %w", s.Name, dep, dxmerrors.ErrPlanOrder)
			}
		}
	}

	done := make([]bool, len(steps))
	ordered := make([]Step, 0, len(steps))
	for len(ordered) < len(steps) {
		picked := -1
		for i, s := range steps {
			if done[i] {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !done[index[dep]] {
					ready = false
					break
				}
			}
			if ready {
				picked = i
				break
			}
		}
		if picked < 0 {
			var pending []string
			for i, s := range steps {
				if !done[i] {
					pending = append(pending, s.Name)
				}
			}
			return nil, fmt.Errorf("dependency cycle among %s: %w", strings.Join(pending, ", "), dxmerrors.ErrPlanOrder)
		}
		done[picked] = true
		ordered = append(ordered, steps[picked])
	}

	p := &Plan{steps: ordered}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects any step that writes into bytes an earlier step already
// read. Such a write would silently invalidate the earlier step's result.
func (p *Plan) Validate() error {
	for i, earlier := range p.steps {
		for _, later := range p.steps[i+1:] {
			for _, r := range earlier.Reads {
				for _, w := range later.Writes {
					if r.Overlaps(w) {
						return fmt.Errorf("step %q writes %s after step %q read %s: %w",
							later.Name, w, earlier.Name, r, dxmerrors.ErrPlanOrder)
					}
				}
			}
		}
	}
	return nil
}

// Steps returns step names in execution order.
func (p *Plan) Steps() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name
	}
	return out
}

// Run executes every step in order and stops at the first failure.
func (p *Plan) Run(buf *OutputBuffer, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	for _, s := range p.steps {
		logger.Trace("🔗 Running integrity step", "step", s.Name)
		if s.Run == nil {
			continue
		}
		if err := s.Run(buf); err != nil {
			return fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	return nil
}

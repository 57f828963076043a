package domain

import (
	"fmt"
	"path/filepath"
)

// Policy selects how the rebuild decision treats runs where nothing
// relevant changed. Two variants of this tool existed historically; the
// enum makes the choice explicit instead of duplicating the flow.
type Policy int

const (
	// PolicyStrict is the default: skip the build unless the pipeline is
	// missing remotely, the spec file changed, or a changed file lies
	// within the build context.
	PolicyStrict Policy = iota

	// PolicyLenient is the legacy mode: always build, and only warn when
	// no changed file falls under the build context.
	PolicyLenient
)

var policyNames = [...]string{
	PolicyStrict:  "strict",
	PolicyLenient: "lenient",
}

func (p Policy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return "unknown"
	}
	return policyNames[p]
}

// ParsePolicy converts a config value into a Policy. The empty string
// means "use the default" and parses as PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "lenient":
		return PolicyLenient, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown policy %q (want strict or lenient)", s)
	}
}

// Reason explains a rebuild decision.
type Reason int

const (
	ReasonBootstrap         Reason = iota // pipeline does not exist remotely
	ReasonSpecChanged                     // the pipeline spec file itself changed
	ReasonContextChanged                  // a changed file lies within the build context
	ReasonNoRelevantChanges               // nothing relevant changed (strict skip)
	ReasonLenientAlways                   // lenient mode builds unconditionally
)

var reasonNames = [...]string{
	ReasonBootstrap:         "pipeline missing remotely",
	ReasonSpecChanged:       "pipeline spec changed",
	ReasonContextChanged:    "build context changed",
	ReasonNoRelevantChanges: "no relevant changes",
	ReasonLenientAlways:     "lenient policy always builds",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// Decision is the outcome of change detection.
type Decision struct {
	Rebuild bool
	Reason  Reason

	// Warning is set under PolicyLenient when the build proceeds despite
	// no changed file falling under the build context.
	Warning string
}

// DecisionInput carries everything Decide needs. All paths are absolute;
// the order of Changed and ContextFiles is irrelevant, only membership
// matters.
type DecisionInput struct {
	Policy         Policy
	PipelineExists bool
	SpecPath       string
	Changed        []string
	ContextFiles   []string
}

// Decide is the pure change-detection decision. An empty Changed set (no
// parent commit) decides "no relevant changes" under PolicyStrict and
// still builds under PolicyLenient.
func Decide(in DecisionInput) Decision {
	if !in.PipelineExists {
		return Decision{Rebuild: true, Reason: ReasonBootstrap}
	}

	specPath := filepath.Clean(in.SpecPath)
	context := make(map[string]struct{}, len(in.ContextFiles))
	for _, f := range in.ContextFiles {
		context[filepath.Clean(f)] = struct{}{}
	}

	contextHit := false
	for _, f := range in.Changed {
		f = filepath.Clean(f)
		if f == specPath {
			return Decision{Rebuild: true, Reason: ReasonSpecChanged}
		}
		if _, ok := context[f]; ok {
			contextHit = true
		}
	}
	if contextHit {
		return Decision{Rebuild: true, Reason: ReasonContextChanged}
	}

	if in.Policy == PolicyLenient {
		return Decision{
			Rebuild: true,
			Reason:  ReasonLenientAlways,
			Warning: "no changed file falls within the docker build context",
		}
	}
	return Decision{Rebuild: false, Reason: ReasonNoRelevantChanges}
}

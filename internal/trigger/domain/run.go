package domain

// RunConfig is the trigger configuration after loading: all paths are
// absolute, resolved against the config file's directory. Immutable once
// loaded.
type RunConfig struct {
	PipelineSpecPath string
	DockerfilePath   string
	BuildContextDir  string
	ImageName        string
	Policy           Policy
}

// RegistryCredentials authenticate the image push.
type RegistryCredentials struct {
	Username string
	Token    string
}

// Run is one trigger invocation: the loaded config, the parsed pipeline
// document, and the commit being evaluated.
type Run struct {
	Config    RunConfig
	Spec      *PipelineDocument
	CommitSHA string

	// DryRun stops after the decision, logging what would happen.
	DryRun bool
}

// State tracks a run through its lifecycle. There are no retries between
// states; any failure moves the run to StateFailed and the process exits
// nonzero.
type State int

const (
	StateStart State = iota
	StateLoaded
	StateSkipped
	StateBuilding
	StatePublishing
	StateUpdating
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateStart:      "Start",
	StateLoaded:     "Loaded",
	StateSkipped:    "Skipped",
	StateBuilding:   "Building",
	StatePublishing: "Publishing",
	StateUpdating:   "Updating",
	StateDone:       "Done",
	StateFailed:     "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Outcome summarizes a completed run.
type Outcome struct {
	State    State
	Decision Decision
	Image    string
}

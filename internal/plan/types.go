package plan

import "time"

// Plan is the in-memory, validated form of the execution-plan document
// (§6). It is immutable once ParsePlan returns it successfully — a
// partially-parsed plan is never surfaced, matching §4.1.
type Plan struct {
	Metadata          Metadata
	Plays             []Play
	BinaryDeployments []BinaryDeployment
	TotalTasks        int
	Hosts             []string
}

// Metadata carries the plan document's top-level identity fields.
type Metadata struct {
	Version   string            `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	PlanID    string            `json:"plan_id"`
	Hashes    map[string]string `json:"hashes,omitempty"`
}

// PlayStrategy selects how a play's tasks progress across its host set
// (§5, Glossary "Strategy (play)").
type PlayStrategy string

const (
	// StrategyLinear: a task does not start on any host until all earlier
	// tasks have completed on every host of the play's batch.
	StrategyLinear PlayStrategy = "linear"
	// StrategyFree: per-host execution proceeds independently.
	StrategyFree PlayStrategy = "free"
)

// Play groups task batches against a set of hosts under one progression
// strategy.
type Play struct {
	Name     string
	Strategy PlayStrategy
	Hosts    []string
	Batches  []Batch
	Handlers []string
}

// Batch is one serialized sub-sequence of tasks within a play.
type Batch struct {
	Tasks []Task
}

// FailurePolicy governs how a task failure affects scheduling of its
// dependents and the overall host run (§3, §4.8).
type FailurePolicy string

const (
	FailureAbort    FailurePolicy = "abort"
	FailureContinue FailurePolicy = "continue"
	FailureIgnore   FailurePolicy = "ignore"
)

// RetryPolicy controls re-execution of a task after a non-abort-fatal
// failure.
type RetryPolicy struct {
	MaxAttempts int      `json:"max_attempts"`
	Backoff     Duration `json:"backoff"`
}

// SelectorKind enumerates the ways a task can name its target hosts.
type SelectorKind string

const (
	SelectAll   SelectorKind = "all"
	SelectNamed SelectorKind = "named"
	SelectGroup SelectorKind = "group"
)

// Selector names the hosts a task targets.
type Selector struct {
	Kind  SelectorKind
	Names []string // host names for "named", group expression tokens for "group"
}

// Task is the unit of work materialized from the plan document (§3). Tasks
// are created at parse time, are immutable thereafter, and are executed at
// most once per host by the embedded runtime.
type Task struct {
	ID            string
	Name          string
	Module        string
	Args          map[string]any
	DependsOn     []string
	When          []Condition
	Target        Selector
	Timeout       *Duration
	Retry         RetryPolicy
	FailurePolicy FailurePolicy
	Notify        []string
	// Index is the task's declared position in the plan document; it is
	// the stable tie-break used by both Kahn's-algorithm ordering (§4.3)
	// and simultaneous-ready scheduling (§5).
	Index int
}

// ConditionOp enumerates the comparison operators a Condition may use
// (§3).
type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpNotEquals   ConditionOp = "not-equals"
	OpContains    ConditionOp = "contains"
	OpStartsWith  ConditionOp = "starts-with"
	OpEndsWith    ConditionOp = "ends-with"
	OpGreaterThan ConditionOp = "greater-than"
	OpLessThan    ConditionOp = "less-than"
	OpExists      ConditionOp = "exists"
	OpNotExists   ConditionOp = "not-exists"
)

// numericOps require a numeric literal at parse time.
var numericOps = map[ConditionOp]bool{
	OpGreaterThan: true,
	OpLessThan:    true,
}

// Condition is a guard clause: (variable path, operator, literal).
type Condition struct {
	Var   string
	Op    ConditionOp
	Value any
}

// CompilationRequirements is the richer form of a binary deployment's
// target description (§6): architecture, OS, compiler version, and the
// other knobs a cross-compile toolchain needs beyond a bare triple.
type CompilationRequirements struct {
	Arch              string   `json:"arch"`
	OS                string   `json:"os"`
	CompilerVersion   string   `json:"compiler_version,omitempty"`
	CrossCompilation  bool     `json:"cross_compilation,omitempty"`
	StaticLinking     bool     `json:"static_linking,omitempty"`
	OptimizationLevel string   `json:"optimization_level,omitempty"`
	Features          []string `json:"features,omitempty"`
}

// StaticFile describes one payload file embedded into a compiled binary
// and materialized at boot (§4.8 step 1, §6).
type StaticFile struct {
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
	Permission uint32 `json:"permissions"`
	Compress   bool   `json:"compress"`
}

// SecretSourceKind enumerates where a deployment secret's value comes from.
type SecretSourceKind string

const (
	SecretFile  SecretSourceKind = "file"
	SecretEnv   SecretSourceKind = "env"
	SecretVault SecretSourceKind = "vault"
)

// SecretSource describes how to obtain one secret's value.
type SecretSource struct {
	Kind      SecretSourceKind
	FilePath  string // Kind == SecretFile
	EnvVar    string // Kind == SecretEnv
	VaultPath string // Kind == SecretVault
	VaultKey  string // Kind == SecretVault
}

// SecretRef names one secret a deployment group needs at runtime.
type SecretRef struct {
	Key    string
	Source SecretSource
}

// BinaryDeployment describes one set of tasks/hosts that the orchestrator
// may compile into a single binary (§3 "Binary-deployment group", §6).
type BinaryDeployment struct {
	DeploymentID        string
	TargetHosts         []string
	TargetArchitecture  string
	Requirements        *CompilationRequirements
	TaskIDs             []string
	EstimatedSavings    float64
	StaticFiles         []StaticFile
	Secrets             []SecretRef
	ControllerEndpoint  string
	ExecutionTimeout    *Duration
	ReportInterval      *Duration
	CleanupOnCompletion bool
	LogLevel            string
	MaxRetries          int
}

// AllTasks flattens every task across every play/batch in declaration
// order, which is the order Index is assigned in.
func (p *Plan) AllTasks() []Task {
	var tasks []Task
	for _, play := range p.Plays {
		for _, batch := range play.Batches {
			tasks = append(tasks, batch.Tasks...)
		}
	}
	return tasks
}

// TaskByID builds a lookup table over every task in the plan.
func (p *Plan) TaskByID() map[string]Task {
	out := make(map[string]Task)
	for _, t := range p.AllTasks() {
		out[t.ID] = t
	}
	return out
}

package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// wire mirrors the exact JSON shape of §6's execution-plan document. Parsing
// goes through this intermediate representation (a decode-then-translate
// idiom) so Plan's exported types can stay free of JSON-specific decoration.
type wireDoc struct {
	Metadata          wireMetadata          `json:"metadata"`
	Plays             []wirePlay            `json:"plays"`
	BinaryDeployments []wireBinaryDeployment `json:"binary_deployments"`
	TotalTasks        int                   `json:"total_tasks"`
	Hosts             []string              `json:"hosts"`
}

type wireMetadata struct {
	Version   string            `json:"version"`
	CreatedAt string            `json:"created_at"`
	PlanID    string            `json:"plan_id"`
	Hashes    map[string]string `json:"hashes"`
}

type wirePlay struct {
	Name     string       `json:"name"`
	Strategy string       `json:"strategy"`
	Hosts    []string     `json:"hosts"`
	Batches  []wireBatch  `json:"batches"`
	Handlers []string     `json:"handlers"`
}

type wireBatch struct {
	Tasks []wireTask `json:"tasks"`
}

type wireSelector struct {
	Kind  string   `json:"kind"`
	Names []string `json:"names"`
}

type wireCondition struct {
	Var   string `json:"var"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type wireRetry struct {
	MaxAttempts int      `json:"max_attempts"`
	Backoff     Duration `json:"backoff"`
}

type wireTask struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Module        string          `json:"module"`
	Args          map[string]any  `json:"args"`
	DependsOn     []string        `json:"dependencies"`
	When          []wireCondition `json:"when"`
	Target        *wireSelector   `json:"target"`
	Timeout       *Duration       `json:"timeout"`
	Retry         wireRetry       `json:"retry"`
	FailurePolicy string          `json:"failure_policy"`
	Notify        []string        `json:"notify"`
}

type wireStaticFile struct {
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
	Permission uint32 `json:"permissions"`
	Compress   bool   `json:"compress"`
}

type wireSecretSource struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Key  string `json:"key"`
}

type wireSecret struct {
	Key    string           `json:"key"`
	Source wireSecretSource `json:"source"`
}

type wireCompilationRequirements struct {
	Arch              string   `json:"arch"`
	OS                string   `json:"os"`
	CompilerVersion   string   `json:"compiler_version"`
	CrossCompilation  bool     `json:"cross_compilation"`
	StaticLinking     bool     `json:"static_linking"`
	OptimizationLevel string   `json:"optimization_level"`
	Features          []string `json:"features"`
}

type wireBinaryDeployment struct {
	DeploymentID        string                       `json:"deployment_id"`
	TargetHosts         []string                     `json:"target_hosts"`
	TargetArchitecture  string                       `json:"target_architecture"`
	Requirements        *wireCompilationRequirements `json:"compilation_requirements"`
	TaskIDs             []string                     `json:"task_ids"`
	EstimatedSavings    float64                      `json:"estimated_savings"`
	StaticFiles         []wireStaticFile             `json:"static_files"`
	Secrets             []wireSecret                 `json:"secrets"`
	ControllerEndpoint  string                       `json:"controller_endpoint"`
	ExecutionTimeout    *Duration                    `json:"execution_timeout"`
	ReportInterval      *Duration                    `json:"report_interval"`
	CleanupOnCompletion bool                         `json:"cleanup_on_completion"`
	LogLevel            string                       `json:"log_level"`
	MaxRetries          int                          `json:"max_retries"`
}

// ParsePlan reads a plan document from r, validates it, and returns the
// materialized Plan. A partially-parsed plan is never surfaced (§4.1): any
// error, syntactic or semantic, returns a nil Plan.
func ParsePlan(r io.Reader) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rerrors.NewInvalidSyntax(0, err)
	}

	var doc wireDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		offset := syntaxErrorOffset(err)
		if err == io.ErrUnexpectedEOF {
			// A truncated document fails at its end.
			offset = int64(len(data))
		}
		return nil, rerrors.NewInvalidSyntax(offset, err)
	}

	p, err := translate(doc)
	if err != nil {
		return nil, err
	}

	if err := Validate(p); err != nil {
		return nil, err
	}

	return p, nil
}

func syntaxErrorOffset(err error) int64 {
	var se *json.SyntaxError
	if ok := errorsAsSyntax(err, &se); ok {
		return se.Offset
	}
	return 0
}

func errorsAsSyntax(err error, target **json.SyntaxError) bool {
	se, ok := err.(*json.SyntaxError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func translate(doc wireDoc) (*Plan, error) {
	p := &Plan{
		Metadata: Metadata{
			Version: doc.Metadata.Version,
			PlanID:  doc.Metadata.PlanID,
			Hashes:  doc.Metadata.Hashes,
		},
		TotalTasks: doc.TotalTasks,
		Hosts:      doc.Hosts,
	}
	if doc.Metadata.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, doc.Metadata.CreatedAt)
		if err != nil {
			return nil, rerrors.NewValidationError("metadata.created_at", err.Error(), err)
		}
		p.Metadata.CreatedAt = ts
	}

	index := 0
	for _, wp := range doc.Plays {
		play := Play{
			Name:     wp.Name,
			Strategy: PlayStrategy(wp.Strategy),
			Hosts:    wp.Hosts,
			Handlers: wp.Handlers,
		}
		if play.Strategy == "" {
			play.Strategy = StrategyLinear
		}
		if play.Strategy != StrategyLinear && play.Strategy != StrategyFree {
			return nil, rerrors.NewValidationError("plays["+wp.Name+"].strategy", fmt.Sprintf("unknown strategy %q", wp.Strategy), nil)
		}

		for _, wb := range wp.Batches {
			batch := Batch{}
			for _, wt := range wb.Tasks {
				task, err := translateTask(wt, index)
				if err != nil {
					return nil, err
				}
				batch.Tasks = append(batch.Tasks, task)
				index++
			}
			play.Batches = append(play.Batches, batch)
		}

		p.Plays = append(p.Plays, play)
	}

	for _, wd := range doc.BinaryDeployments {
		bd, err := translateDeployment(wd)
		if err != nil {
			return nil, err
		}
		p.BinaryDeployments = append(p.BinaryDeployments, bd)
	}

	return p, nil
}

func translateTask(wt wireTask, index int) (Task, error) {
	t := Task{
		ID:            wt.ID,
		Name:          wt.Name,
		Module:        wt.Module,
		Args:          wt.Args,
		DependsOn:     wt.DependsOn,
		Notify:        wt.Notify,
		Timeout:       wt.Timeout,
		FailurePolicy: FailurePolicy(wt.FailurePolicy),
		Retry: RetryPolicy{
			MaxAttempts: wt.Retry.MaxAttempts,
			Backoff:     wt.Retry.Backoff,
		},
		Index: index,
	}
	if t.Args == nil {
		t.Args = map[string]any{}
	}
	if t.FailurePolicy == "" {
		t.FailurePolicy = FailureAbort
	}
	switch t.FailurePolicy {
	case FailureAbort, FailureContinue, FailureIgnore:
	default:
		return Task{}, rerrors.NewValidationError(t.ID+".failure_policy", fmt.Sprintf("unknown failure policy %q", t.FailurePolicy), nil)
	}

	if wt.Target == nil {
		t.Target = Selector{Kind: SelectAll}
	} else {
		t.Target = Selector{Kind: SelectorKind(wt.Target.Kind), Names: wt.Target.Names}
		switch t.Target.Kind {
		case SelectAll, SelectNamed, SelectGroup:
		default:
			return Task{}, rerrors.NewValidationError(t.ID+".target", fmt.Sprintf("unknown selector kind %q", wt.Target.Kind), nil)
		}
		if t.Target.Kind != SelectAll && len(t.Target.Names) == 0 {
			return Task{}, rerrors.NewValidationError(t.ID+".target", "selector requires at least one name", nil)
		}
	}

	for _, wc := range wt.When {
		cond := Condition{Var: wc.Var, Op: ConditionOp(wc.Op), Value: wc.Value}
		switch cond.Op {
		case OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith,
			OpGreaterThan, OpLessThan, OpExists, OpNotExists:
		default:
			return Task{}, rerrors.NewValidationError(t.ID+".when", fmt.Sprintf("unknown condition operator %q", wc.Op), nil)
		}
		if numericOps[cond.Op] {
			if !isNumericLiteral(cond.Value) {
				return Task{}, rerrors.NewValidationError(t.ID+".when", fmt.Sprintf("operator %q requires a numeric literal", cond.Op), nil)
			}
		}
		t.When = append(t.When, cond)
	}

	if t.ID == "" {
		return Task{}, rerrors.NewValidationError(fmt.Sprintf("tasks[%d].id", index), "task id is required", nil)
	}
	if t.Module == "" {
		return Task{}, rerrors.NewValidationError(t.ID+".module", "module is required", nil)
	}

	return t, nil
}

func isNumericLiteral(v any) bool {
	switch val := v.(type) {
	case json.Number:
		return true
	case float64, int, int64:
		return true
	case string:
		var f float64
		_, err := fmt.Sscanf(val, "%g", &f)
		return err == nil
	default:
		return false
	}
}

func translateDeployment(wd wireBinaryDeployment) (BinaryDeployment, error) {
	bd := BinaryDeployment{
		DeploymentID:        wd.DeploymentID,
		TargetHosts:         wd.TargetHosts,
		TargetArchitecture:  wd.TargetArchitecture,
		TaskIDs:             wd.TaskIDs,
		EstimatedSavings:    wd.EstimatedSavings,
		ControllerEndpoint:  wd.ControllerEndpoint,
		ExecutionTimeout:    wd.ExecutionTimeout,
		ReportInterval:      wd.ReportInterval,
		CleanupOnCompletion: wd.CleanupOnCompletion,
		LogLevel:            wd.LogLevel,
		MaxRetries:          wd.MaxRetries,
	}
	if wd.Requirements != nil {
		bd.Requirements = &CompilationRequirements{
			Arch:              wd.Requirements.Arch,
			OS:                wd.Requirements.OS,
			CompilerVersion:   wd.Requirements.CompilerVersion,
			CrossCompilation:  wd.Requirements.CrossCompilation,
			StaticLinking:     wd.Requirements.StaticLinking,
			OptimizationLevel: wd.Requirements.OptimizationLevel,
			Features:          wd.Requirements.Features,
		}
	}
	for _, sf := range wd.StaticFiles {
		bd.StaticFiles = append(bd.StaticFiles, StaticFile{
			SourcePath: sf.SourcePath,
			TargetPath: sf.TargetPath,
			Permission: sf.Permission,
			Compress:   sf.Compress,
		})
	}
	for _, s := range wd.Secrets {
		ref := SecretRef{Key: s.Key}
		switch SecretSourceKind(s.Source.Type) {
		case SecretFile:
			ref.Source = SecretSource{Kind: SecretFile, FilePath: s.Source.Path}
		case SecretEnv:
			ref.Source = SecretSource{Kind: SecretEnv, EnvVar: s.Source.Path}
		case SecretVault:
			ref.Source = SecretSource{Kind: SecretVault, VaultPath: s.Source.Path, VaultKey: s.Source.Key}
		default:
			return BinaryDeployment{}, rerrors.NewValidationError(bd.DeploymentID+".secrets", fmt.Sprintf("unknown secret source %q", s.Source.Type), nil)
		}
		bd.Secrets = append(bd.Secrets, ref)
	}

	if bd.DeploymentID == "" {
		return BinaryDeployment{}, rerrors.NewValidationError("binary_deployments", "deployment_id is required", nil)
	}
	if len(bd.TargetHosts) == 0 {
		return BinaryDeployment{}, rerrors.NewValidationError(bd.DeploymentID+".target_hosts", "at least one target host is required", nil)
	}

	return bd, nil
}


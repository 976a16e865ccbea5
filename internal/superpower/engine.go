package superpower

import (
	"context"
	"strconv"
	"strings"

	"github.com/tenx-dev/core/internal/router"
	"github.com/tenx-dev/core/internal/types"
)

// EventKind discriminates the engine's event stream (spec §4.7 Execution).
type EventKind string

const (
	EventStepStart    EventKind = "step_start"
	EventStepText     EventKind = "step_text"
	EventStepComplete EventKind = "step_complete"
	EventStepError    EventKind = "step_error"
	EventComplete     EventKind = "complete"
)

// Event is one item of the engine's event stream.
type Event struct {
	Kind   EventKind
	Step   int
	Text   string
	Error  string
	Result *Result
}

// Result is the engine's terminal outcome.
type Result struct {
	Success    bool
	StepOutput map[int]string
}

// Vars carries the substitution inputs for one run (spec §4.7 step 1).
type Vars struct {
	UserInput string
	Cwd       string
	Images    []string
}

// Engine is a thin driver atop the Router that sequences a Superpower's
// steps (spec §2, §4.7). It does not retry steps itself.
type Engine struct {
	router *router.Router
}

// NewEngine builds an Engine driving r.
func NewEngine(r *router.Router) *Engine {
	return &Engine{router: r}
}

// Run starts executing sp's steps in order and returns the Event channel at
// once; the channel is closed after the final complete event, when the
// workflow completes or a step fails.
func (e *Engine) Run(ctx context.Context, sp *types.Superpower, vars Vars) <-chan Event {
	out := make(chan Event, 16)
	go e.run(ctx, sp, vars, out)
	return out
}

func (e *Engine) run(ctx context.Context, sp *types.Superpower, vars Vars, out chan<- Event) {
	defer close(out)

	stepOutput := map[int]string{}
	for _, step := range sp.Steps {
		if ctx.Err() != nil {
			out <- Event{Kind: EventStepError, Step: step.Number, Error: "cancelled"}
			out <- Event{Kind: EventComplete, Result: &Result{Success: false, StepOutput: stepOutput}}
			return
		}

		out <- Event{Kind: EventStepStart, Step: step.Number}
		prompt := substitute(step.PromptTemplate, vars, stepOutput, step.Number)

		stepRouter := e.router
		if len(step.Tools) > 0 {
			stepRouter = e.router.WithRegistry(e.router.Registry().Subset(step.Tools))
		}

		events, err := stepRouter.Stream(ctx, []types.Message{{Role: types.RoleUser, Content: prompt}}, router.StreamOptions{ForcedTier: step.ModelTier})
		if err != nil {
			out <- Event{Kind: EventStepError, Step: step.Number, Error: err.Error()}
			out <- Event{Kind: EventComplete, Result: &Result{Success: false, StepOutput: stepOutput}}
			return
		}

		var output []byte
		failed := false
		failErr := ""
		for ev := range events {
			switch ev.Kind {
			case types.EventText:
				output = append(output, ev.Content...)
				out <- Event{Kind: EventStepText, Step: step.Number, Text: ev.Content}
			case types.EventDone:
				if ev.Cancelled {
					failed = true
					failErr = "cancelled"
				} else if ev.Err != nil {
					failed = true
					failErr = ev.Err.Error()
				}
			}
		}
		if failed {
			out <- Event{Kind: EventStepError, Step: step.Number, Error: failErr}
			out <- Event{Kind: EventComplete, Result: &Result{Success: false, StepOutput: stepOutput}}
			return
		}

		stepOutput[step.Number] = string(output)
		out <- Event{Kind: EventStepComplete, Step: step.Number, Text: string(output)}
	}

	out <- Event{Kind: EventComplete, Result: &Result{Success: true, StepOutput: stepOutput}}
}

// substitute performs the textual variable substitution from spec §4.7 step 1.
func substitute(template string, vars Vars, stepOutput map[int]string, currentStep int) string {
	out := template
	out = strings.ReplaceAll(out, "{{input}}", vars.UserInput)
	out = strings.ReplaceAll(out, "{{user_input}}", vars.UserInput)
	out = strings.ReplaceAll(out, "{{cwd}}", vars.Cwd)

	if prev, ok := stepOutput[currentStep-1]; ok {
		out = strings.ReplaceAll(out, "{{previous}}", prev)
		out = strings.ReplaceAll(out, "{{output}}", prev)
	}

	for n, text := range stepOutput {
		out = strings.ReplaceAll(out, "{{step"+strconv.Itoa(n)+"}}", text)
	}

	if len(vars.Images) > 0 {
		out = strings.ReplaceAll(out, "{{image}}", vars.Images[0])
		out = strings.ReplaceAll(out, "{{images}}", strings.Join(vars.Images, ", "))
	}
	return out
}

package router

import "context"

// AskQuestionCallback is the external UI hook from spec §6: given a set of
// questions, it returns an answer per question key. Like permission.PromptCallback,
// it crosses the core/UI async boundary and must observe ctx cancellation.
type AskQuestionCallback func(ctx context.Context, questions []string) (map[string]string, error)

// PlanModeHooks are the two async callbacks from spec §6 connecting the core
// to an external host UI for plan-mode: entering plan mode hands the host a
// file path the model is expected to write its plan to; exiting submits the
// file's content back to the host for approval. The core does not interpret
// plan content itself — these are pure pass-throughs to the named external
// collaborator.
type PlanModeHooks struct {
	// Enter is called when the model requests plan mode for a task
	// description. It returns whether the host approved entering plan mode
	// and the path the model should write its plan to.
	Enter func(ctx context.Context, task string) (approved bool, planFilePath string, err error)
	// Exit is called with the plan file's path once the model believes the
	// plan is complete. It returns whether the host approved the plan and
	// the (possibly host-edited) plan content.
	Exit func(ctx context.Context, planFilePath string) (approved bool, planContent string, err error)
}

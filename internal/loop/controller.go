package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/loopkit/drover/internal/agent"
	"github.com/loopkit/drover/internal/classify"
	"github.com/loopkit/drover/internal/cost"
	"github.com/loopkit/drover/internal/git"
	"github.com/loopkit/drover/internal/memory"
	"github.com/loopkit/drover/internal/plan"
	"github.com/loopkit/drover/internal/prompt"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
	"github.com/loopkit/drover/internal/verify"
	"github.com/loopkit/drover/internal/workspace"
)

// Budget growth for plans that gain tasks mid-run.
const (
	pendingBufferRatio  = 0.3
	minPendingBuffer    = 3
	finalRoundExtension = 2
)

// Stall detection: a run must be past stallMinRound and accumulate this
// many consecutive idle rounds before it stops early. Plans with many
// pending tasks get one extra round of grace.
const (
	stallMinRound     = 3
	idleThreshold     = 3
	idleThresholdBusy = 4
	busyPendingCutoff = 5
)

// ControllerDeps contains the dependencies for the Controller.
type ControllerDeps struct {
	Agent     agent.Agent
	Validator verify.Runner
	Git       git.Manager
	Cost      *cost.Meter
	Progress  *memory.Log
	Sessions  *session.Store
	WorkDir   string
	PlanPath  string
	LogsDir   string
}

// Controller drives the iteration loop: build a prompt, invoke the agent,
// classify its output, validate, commit, repeat until a terminal condition.
type Controller struct {
	agent     agent.Agent
	validator verify.Runner
	git       git.Manager
	cost      *cost.Meter
	progress  *memory.Log
	sessions  *session.Store
	workDir   string
	planPath  string
	logsDir   string

	opts    Options
	breaker *Breaker
	limiter *RateLimiter
	prompts *prompt.Builder
}

// NewController creates a loop controller with the given dependencies and
// options. A nil cost meter defaults to one built from the options' ceiling.
func NewController(deps ControllerDeps, opts Options) *Controller {
	meter := deps.Cost
	if meter == nil {
		meter = cost.NewMeter(opts.CostCeilingUSD)
	}
	return &Controller{
		agent:     deps.Agent,
		validator: deps.Validator,
		git:       deps.Git,
		cost:      meter,
		progress:  deps.Progress,
		sessions:  deps.Sessions,
		workDir:   deps.WorkDir,
		planPath:  deps.PlanPath,
		logsDir:   deps.LogsDir,
		opts:      opts,
		breaker:   NewBreaker(opts.Breaker),
		limiter:   NewRateLimiter(opts.CallsPerHour),
		prompts:   prompt.NewBuilder(nil),
	}
}

// run carries the mutable state of one Run call.
type run struct {
	task          string
	sess          *session.State
	iteration     int
	maxIterations int
	feedback      string
	prevTotal     int
	idleStreak    int
	extended      bool
	commits       []string
	stats         Stats
	startedAt     time.Time
}

// Run executes rounds until a terminal condition. Errors are reserved for
// setup problems (an active session, invalid options, an unreadable plan
// file); everything that happens inside the loop resolves to a Result.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if err := c.opts.validate(); err != nil {
		return nil, err
	}
	if c.agent == nil {
		return nil, errors.New("agent is required")
	}
	if c.sessions == nil {
		return nil, errors.New("session store is required")
	}
	if c.workDir != "" {
		if err := state.EnsureDroverDir(c.workDir); err != nil {
			return nil, err
		}
	}

	r := &run{
		task:          c.opts.Task,
		maxIterations: c.opts.MaxIterations,
		prevTotal:     -1,
		commits:       []string{},
		startedAt:     time.Now(),
	}

	if c.opts.Resume {
		sess, err := c.sessions.Resume()
		if err != nil {
			return nil, fmt.Errorf("failed to resume session: %w", err)
		}
		r.sess = sess
		r.iteration = sess.Iteration
		r.commits = append(r.commits, sess.Commits...)
		r.stats = fromSessionStats(sess.Stats)
		if sess.MaxIterations > r.maxIterations {
			r.maxIterations = sess.MaxIterations
		}
		if r.task == "" {
			r.task = sess.Task
		}
		// Spend from before the pause still counts against the ceiling.
		c.cost.Record(sess.Stats.CostUSD)
		// A lingering pause flag would stop the resumed run immediately.
		if c.workDir != "" {
			_ = state.SetPaused(c.workDir, false)
		}
	} else {
		sess, err := c.sessions.Start(r.task, r.maxIterations)
		if err != nil {
			return nil, err
		}
		r.sess = sess
	}

	// PR mode works on a dedicated branch named after the task.
	if c.opts.OpenPR && c.git != nil && c.git.IsRepo(ctx) {
		if err := c.git.EnsureBranch(ctx, slugify(r.task)); err != nil {
			_ = c.sessions.Finish(r.sess, session.StatusFailed, "")
			return nil, fmt.Errorf("failed to prepare work branch: %w", err)
		}
	}

	if c.progress != nil {
		if err := c.progress.Init(r.task); err != nil {
			slog.Warn("progress log init failed", "error", err)
		}
	}

	for {
		// Cancellation and pause requests take effect between rounds.
		select {
		case <-ctx.Done():
			return c.pause(r, "run cancelled")
		default:
		}
		if c.checkPaused() {
			return c.pause(r, "pause requested")
		}

		// A tripped breaker ends the run before anything else.
		if c.breaker.IsTripped() {
			return c.finish(r, ExitCircuitBreaker, c.breaker.TripReason())
		}

		// Acquire a call slot, waiting a bounded time for one to free.
		if !c.limiter.WaitAndAcquire(ctx, c.opts.MaxRateWait) {
			if ctx.Err() != nil {
				return c.pause(r, "run cancelled while waiting for a call slot")
			}
			return c.finish(r, ExitRateLimit,
				fmt.Sprintf("no call slot freed within %s (%d calls/hour)", c.opts.MaxRateWait, c.opts.CallsPerHour))
		}

		snap, err := plan.LoadFile(c.planPath)
		if err != nil {
			_ = c.sessions.Finish(r.sess, session.StatusFailed, "")
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
		r.stats.TasksTotal = snap.Total
		r.stats.TasksCompleted = snap.Completed

		// Out-of-band completion signals end the run, but never while
		// validation feedback is still waiting to be worked off.
		if r.feedback == "" {
			if done, why := c.completionSignal(snap); done {
				return c.finish(r, ExitFileSignal, why)
			}
		}

		if c.cost.OverCeiling() {
			return c.finish(r, ExitCostCeiling, "cost ceiling reached: "+c.cost.Summary())
		}

		// An agent that grows its own plan earns a bigger round budget,
		// capped and never shrinking.
		if r.prevTotal >= 0 && snap.Total > r.prevTotal {
			if grown := growBudget(r.maxIterations, snap.Pending, c.opts.HardCap); grown > r.maxIterations {
				r.maxIterations = grown
			}
		}
		r.prevTotal = snap.Total

		r.iteration++

		promptText, err := c.prompts.Build(prompt.Input{
			Iteration:        r.iteration,
			MaxIterations:    r.maxIterations,
			TaskDescription:  r.task,
			Current:          snap.CurrentTask(),
			Snapshot:         snap,
			Feedback:         r.feedback,
			CompletionSignal: c.completionToken(),
			TokenBudget:      c.opts.TokenBudget,
		})
		if err != nil {
			_ = c.sessions.Finish(r.sess, session.StatusFailed, "")
			return nil, fmt.Errorf("failed to build round prompt: %w", err)
		}

		// Round-start fingerprints for change detection.
		before, _ := workspace.Snapshot(c.workDir)
		inRepo := c.git != nil && c.git.IsRepo(ctx)
		var beforeHead string
		if inRepo {
			beforeHead, _ = c.git.GetCurrentCommit(ctx)
		}

		rec := NewIterationRecord(r.iteration)
		c.limiter.RecordCall()
		resp, invokeErr := c.agent.Invoke(ctx, agent.Request{
			Prompt:       promptText,
			WorkDir:      c.workDir,
			Timeout:      c.opts.AgentTimeout,
			OnOutputLine: c.opts.OnOutputLine,
		})

		var output string
		agentFault := ""
		if resp != nil {
			output = resp.Output
			rec.AgentExitCode = resp.ExitCode
			rec.CostUSD = resp.CostUSD
			c.cost.Record(resp.CostUSD)
		}
		if invokeErr != nil {
			// Invocation faults are ordinary round output; classification
			// and the breaker see them like anything the agent printed.
			agentFault = invokeErr.Error()
			output = strings.TrimRight(output, "\n") +
				fmt.Sprintf("\n\nagent invocation failed: %v\n", invokeErr)
		}
		rec.SetOutput(output)

		if invokeErr != nil && ctx.Err() != nil {
			rec.Verdict = string(classify.VerdictContinue)
			rec.VerdictReason = "run cancelled during the agent call"
			c.persistRound(r, rec)
			return c.pause(r, "run cancelled during the agent call")
		}

		res := classify.Classify(output, c.opts.Policy)
		verdict, why := res.Verdict, res.Reason
		rec.Verdict, rec.VerdictReason = string(verdict), why

		// Blocked is terminal and not retried.
		if verdict == classify.VerdictBlocked {
			kind := classify.ClassifyBlock(output)
			msg := fmt.Sprintf("agent blocked (%s): %s", kind, why)
			if hint := kind.Hint(); hint != "" {
				msg += ". " + hint
			}
			c.persistRound(r, rec)
			return c.finish(r, ExitBlocked, msg)
		}

		// Did the round actually touch the tree?
		filesChanged := false
		if after, err := workspace.Snapshot(c.workDir); err == nil {
			filesChanged = !after.Equal(before)
		}
		if !filesChanged && inRepo {
			if dirty, derr := c.git.HasChanges(ctx); derr == nil && dirty {
				filesChanged = true
			} else if head, herr := c.git.GetCurrentCommit(ctx); herr == nil && head != beforeHead {
				filesChanged = true
			}
		}
		rec.FilesChanged = filesChanged
		if filesChanged {
			r.stats.RoundsWithChanges++
		}

		// A first-round "done" with nothing to show for it is noise.
		if verdict == classify.VerdictDone && !filesChanged && r.iteration == 1 {
			verdict, why = classify.VerdictContinue, "completion claimed on the first round with no changes"
			rec.Verdict, rec.VerdictReason = string(verdict), why
		}

		postSnap, err := plan.LoadFile(c.planPath)
		if err != nil {
			c.persistRound(r, rec)
			_ = c.sessions.Finish(r.sess, session.StatusFailed, "")
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
		r.stats.TasksTotal = postSnap.Total
		r.stats.TasksCompleted = postSnap.Completed

		// Rounds that change nothing, complete nothing, and have no failing
		// validation to chew on eventually stop the run. A failing check is
		// progress of a kind: the agent is debugging.
		if filesChanged || postSnap.Completed > snap.Completed || r.feedback != "" {
			r.idleStreak = 0
		} else {
			r.idleStreak++
			threshold := idleThreshold
			if postSnap.Pending > busyPendingCutoff {
				threshold = idleThresholdBusy
			}
			if r.idleStreak >= threshold && r.iteration > stallMinRound {
				c.persistRound(r, rec)
				return c.finish(r, ExitCompleted,
					fmt.Sprintf("no progress for %d rounds, stopping", r.idleStreak))
			}
		}

		// The ledger outranks the agent's own claim of completion.
		if verdict == classify.VerdictDone && postSnap.Pending > 0 {
			verdict, why = classify.VerdictContinue,
				fmt.Sprintf("completion claimed with %d tasks still pending", postSnap.Pending)
			rec.Verdict, rec.VerdictReason = string(verdict), why
		}

		// Tiered validation: cheap checks on intermediate rounds, the full
		// set when this round looks final.
		validationFailed := false
		if c.opts.ValidationEnabled && c.validator != nil && r.iteration > c.opts.WarmupRounds {
			finalRound := r.iteration >= r.maxIterations ||
				postSnap.AllComplete() ||
				verdict == classify.VerdictDone
			tier, commands := "cheap", c.opts.CheapChecks
			if finalRound {
				tier, commands = "full", c.opts.FullChecks
			}
			if len(commands) > 0 {
				summary := &ValidationSummary{Tier: tier}
				results, verr := c.validator.Run(ctx, commands)
				switch {
				case verr != nil:
					validationFailed = true
					r.feedback = fmt.Sprintf("validation could not run: %v", verr)
				case verify.Failed(results):
					validationFailed = true
					r.feedback = verify.FeedbackFromResults(results, verify.DefaultTrimOptions())
					if f := verify.FirstFailure(results); f != nil {
						summary.FailedCommand = strings.Join(f.Command, " ")
					}
				default:
					summary.Passed = true
					r.feedback = ""
				}
				rec.Validation = summary

				if validationFailed {
					r.stats.ValidationFailures++
					if c.breaker.RecordFailure(r.feedback) {
						c.persistRound(r, rec)
						return c.finish(r, ExitCircuitBreaker, c.breaker.TripReason())
					}
					// A failing final build earns one bounded extension to
					// let the agent repair it.
					if finalRound && r.iteration >= r.maxIterations && !r.extended {
						r.maxIterations += finalRoundExtension
						r.extended = true
					}
					if verdict == classify.VerdictDone {
						verdict, why = classify.VerdictContinue, "completion claimed but validation failed"
						rec.Verdict, rec.VerdictReason = string(verdict), why
					}
				}
			}
		}

		// One breaker entry per round: a validation failure was already
		// recorded above, an invocation fault counts as a failure, anything
		// else resets the consecutive counter.
		if !validationFailed {
			if agentFault != "" {
				c.breaker.RecordFailure(agentFault)
			} else {
				c.breaker.RecordSuccess()
			}
		}

		// Auto-commit whatever the round left in the tree.
		if c.opts.AutoCommit && inRepo && filesChanged {
			if dirty, derr := c.git.HasChanges(ctx); derr == nil && dirty {
				title := ""
				if cur := snap.CurrentTask(); cur != nil {
					title = cur.Name
				}
				changed, _ := c.git.GetChangedFiles(ctx)
				hash, cerr := c.git.Commit(ctx, git.FormatCommitMessage(title, r.iteration, changed))
				if cerr != nil {
					slog.Warn("auto-commit failed", "round", r.iteration, "error", cerr)
				} else {
					rec.Committed = true
					rec.CommitHash = hash
					r.commits = append(r.commits, hash)
					if c.opts.Push {
						if perr := c.git.Push(ctx); perr != nil {
							slog.Warn("push failed", "round", r.iteration, "error", perr)
						}
					}
				}
			}
		}

		c.persistRound(r, rec)

		if verdict == classify.VerdictDone {
			return c.finish(r, ExitCompleted, why)
		}

		if r.iteration >= r.maxIterations {
			return c.finish(r, ExitMaxIterations,
				fmt.Sprintf("stopping after %d of %d rounds", r.iteration, r.maxIterations))
		}

		if c.opts.Manual {
			return c.pause(r, "manual mode, round complete")
		}
	}
}

// completionSignal reports an out-of-band completion: the sentinel file or
// a fully checked-off plan.
func (c *Controller) completionSignal(snap *plan.Snapshot) (bool, string) {
	if c.workDir != "" {
		if present, err := state.HasCompleteSentinel(c.workDir); err == nil && present {
			return true, "completion sentinel found"
		}
	}
	if snap.AllComplete() {
		return true, fmt.Sprintf("plan complete: all %d tasks checked off", snap.Total)
	}
	return false, ""
}

// completionToken is what the prompt tells the agent to emit when done.
func (c *Controller) completionToken() string {
	if c.opts.Policy.Token != "" {
		return c.opts.Policy.Token
	}
	return classify.CompletionTag
}

// checkPaused checks whether a pause has been requested via the flag file.
func (c *Controller) checkPaused() bool {
	if c.workDir == "" {
		return false
	}
	paused, err := state.IsPaused(c.workDir)
	if err != nil {
		return false
	}
	return paused
}

// persistRound flushes the round's record, progress entry, and session
// counters. Writes are best-effort: logging never kills a run.
func (c *Controller) persistRound(r *run, rec *IterationRecord) {
	rec.Finish()
	r.stats.CostUSD = c.cost.TotalUSD()

	if c.logsDir != "" {
		if _, err := SaveRecord(c.logsDir, rec); err != nil {
			slog.Warn("round record not saved", "round", rec.Index, "error", err)
		}
	}
	if c.progress != nil {
		if err := c.progress.Append(roundEntry(rec)); err != nil {
			slog.Warn("progress entry not appended", "round", rec.Index, "error", err)
		}
	}

	r.syncSession()
	if err := c.sessions.Save(r.sess); err != nil {
		slog.Warn("session not saved", "error", err)
	}
}

// roundEntry converts a round record into its progress log form.
func roundEntry(rec *IterationRecord) memory.RoundEntry {
	entry := memory.RoundEntry{
		Index:         rec.Index,
		Verdict:       rec.Verdict,
		VerdictReason: rec.VerdictReason,
		FilesChanged:  rec.FilesChanged,
		CommitHash:    rec.CommitHash,
		CostUSD:       rec.CostUSD,
		Duration:      time.Duration(rec.DurationMs) * time.Millisecond,
	}
	if v := rec.Validation; v != nil {
		switch {
		case v.Passed:
			entry.Validation = fmt.Sprintf("passed (%s)", v.Tier)
		case v.FailedCommand != "":
			entry.Validation = fmt.Sprintf("failed (%s): %s", v.Tier, v.FailedCommand)
		default:
			entry.Validation = fmt.Sprintf("failed (%s)", v.Tier)
		}
	}
	return entry
}

func (c *Controller) finish(r *run, reason ExitReason, message string) (*Result, error) {
	status := session.StatusFailed
	if reason.Success() {
		status = session.StatusCompleted
	}
	r.syncSession()
	if err := c.sessions.Finish(r.sess, status, string(reason)); err != nil {
		slog.Warn("session not finalized", "error", err)
	}
	return c.newResult(r, reason, message), nil
}

func (c *Controller) pause(r *run, why string) (*Result, error) {
	r.syncSession()
	if err := c.sessions.Pause(r.sess, why); err != nil {
		slog.Warn("session not paused", "error", err)
	}
	return c.newResult(r, ExitPaused, why), nil
}

func (c *Controller) newResult(r *run, reason ExitReason, message string) *Result {
	r.stats.CostUSD = c.cost.TotalUSD()
	r.stats.Elapsed = time.Since(r.startedAt)
	return &Result{
		Success:    reason.Success(),
		ExitReason: reason,
		Message:    message,
		Iterations: r.iteration,
		Commits:    r.commits,
		Stats:      r.stats,
	}
}

// syncSession copies loop progress into the persisted session record.
func (r *run) syncSession() {
	r.sess.Iteration = r.iteration
	r.sess.MaxIterations = r.maxIterations
	r.sess.Commits = r.commits
	r.sess.Stats = toSessionStats(r.stats)
}

func toSessionStats(s Stats) session.Stats {
	return session.Stats{
		TasksTotal:         s.TasksTotal,
		TasksCompleted:     s.TasksCompleted,
		RoundsWithChanges:  s.RoundsWithChanges,
		ValidationFailures: s.ValidationFailures,
		CostUSD:            s.CostUSD,
	}
}

func fromSessionStats(s session.Stats) Stats {
	return Stats{
		TasksTotal:         s.TasksTotal,
		TasksCompleted:     s.TasksCompleted,
		RoundsWithChanges:  s.RoundsWithChanges,
		ValidationFailures: s.ValidationFailures,
		CostUSD:            s.CostUSD,
	}
}

// growBudget recomputes the round budget after the plan gained tasks:
// min(hardCap, max(current, pending+buffer)).
func growBudget(current, pending, hardCap int) int {
	buffer := int(math.Ceil(float64(pending) * pendingBufferRatio))
	if buffer < minPendingBuffer {
		buffer = minPendingBuffer
	}
	next := pending + buffer
	if next < current {
		next = current
	}
	if next > hardCap {
		next = hardCap
	}
	return next
}

// Package verify runs the startup installation check.
//
// Run loads the warning cache, scopes it to the current environment, probes
// every condition and, for each detected problem the policy allows, shows a
// notice and records the display. Every result and decision is logged before
// any notice is shown. Nothing in here fails the caller: problems degrade to
// log lines and a partial Report.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"modcheck/internal/fingerprint"
	"modcheck/internal/integrity"
	"modcheck/internal/logging"
	"modcheck/internal/notify"
	"modcheck/internal/policy"
	"modcheck/internal/warncache"
)

// Options configures one verification run.
type Options struct {
	InstallRoot   string
	CachePath     string
	LoaderVersion string
	Conditions    []integrity.Condition
	Policy        policy.Policy

	Provider  fingerprint.Provider
	Presenter notify.Presenter
	Opener    notify.LinkOpener

	// DisableLinks builds notices without a URL.
	DisableLinks bool

	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *zap.Logger

	// HashFile replaces integrity.HashFile.
	HashFile func(path string) (string, error)

	// RunID correlates log and audit lines; generated when empty.
	RunID string
	Audit *logging.AuditLogger
}

// Outcome is what happened to one condition.
type Outcome struct {
	Result   integrity.Result
	Decision *policy.Decision

	// Shown is set when the notice was displayed and recorded.
	Shown    bool
	Accepted bool
	Entry    warncache.Entry

	// PresentErr is why a permitted notice could not be displayed.
	PresentErr error
}

// Report summarizes a run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	Fingerprint string
	CacheReset  bool
	Outcomes    []Outcome
}

// Detected returns the outcomes whose condition was detected.
func (r Report) Detected() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Result.Detected() {
			out = append(out, o)
		}
	}
	return out
}

// AnyDetected reports whether any condition was detected.
func (r Report) AnyDetected() bool { return len(r.Detected()) > 0 }

// Run performs the startup check.
func Run(ctx context.Context, opts Options) Report {
	opts = withDefaults(opts)

	report := Report{RunID: opts.RunID, StartedAt: opts.Clock()}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	audit := opts.Audit
	started := time.Now()
	base := opts.Logger.With(zap.String("run_id", report.RunID))
	bootLog := logging.For(base, logging.CategoryBoot)
	probeLog := logging.For(base, logging.CategoryProbe)
	notifyLog := logging.For(base, logging.CategoryNotify)

	bootLog.Info("Verifying installation",
		zap.String("install_root", opts.InstallRoot),
		zap.Int("conditions", len(opts.Conditions)))
	audit.Log(logging.AuditEvent{Type: logging.AuditCheckStart, Message: opts.InstallRoot})

	cache := warncache.Load(opts.CachePath, base)
	report.Fingerprint = fingerprint.Resolve(ctx, opts.Provider, opts.InstallRoot, opts.LoaderVersion, base)
	report.CacheReset = cache.Reconcile(report.Fingerprint)
	if report.CacheReset {
		audit.Log(logging.AuditEvent{Type: logging.AuditCacheReset, Message: report.Fingerprint})
	}

	var probeOpts []integrity.ProbeOption
	if opts.HashFile != nil {
		probeOpts = append(probeOpts, integrity.WithHashFunc(opts.HashFile))
	}
	probe := integrity.NewProbe(opts.InstallRoot, opts.Conditions, probeOpts...)
	engine := policy.New(cache, opts.Policy, policy.WithClock(opts.Clock), policy.WithLogger(base))
	policyLog := logging.For(base, logging.CategoryPolicy)

	for _, res := range probe.EvaluateAll() {
		if ctx.Err() != nil {
			bootLog.Info("Verification cancelled", zap.Error(ctx.Err()))
			break
		}

		logResult(probeLog, res)
		audit.Log(logging.AuditEvent{
			Type:   logging.AuditCondition,
			Key:    res.Key(),
			Status: res.Status.String(),
			Error:  res.Err,
		})
		out := Outcome{Result: res}
		if !res.Detected() {
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		d := engine.Decide(res.Key())
		out.Decision = &d
		logDecision(policyLog, d)
		audit.Log(logging.AuditEvent{
			Type:    logging.AuditDecision,
			Key:     d.Key,
			Phase:   string(d.Phase),
			Reason:  string(d.Reason),
			Message: decisionVerb(d),
		})
		if !d.Warn {
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		notice := notify.Notice{
			Key:    res.Key(),
			Title:  res.Condition.Title,
			Body:   res.Condition.Message,
			Footer: engine.Footer(d, engine.Projected(res.Key())),
		}
		if !opts.DisableLinks {
			notice.URL = res.Condition.URL
		}

		accepted, err := opts.Presenter.Present(notice)
		if err != nil {
			out.PresentErr = err
			audit.Log(logging.AuditEvent{Type: logging.AuditDisplayError, Key: res.Key(), Error: err})
			if errors.Is(err, notify.ErrHeadless) {
				notifyLog.Warn("Warning not displayed (no interactive terminal)", zap.String("key", res.Key()))
			} else {
				notifyLog.Warn("Warning not displayed", zap.String("key", res.Key()), zap.Error(err))
			}
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		out.Shown = true
		out.Accepted = accepted
		out.Entry = engine.RecordShown(res.Key())
		audit.Log(logging.AuditEvent{
			Type:  logging.AuditDisplay,
			Key:   res.Key(),
			Shown: &out.Shown,
			Count: &out.Entry.ShownCount,
		})

		if accepted && notice.URL != "" {
			err := opts.Opener.Open(notice.URL)
			if err != nil {
				notifyLog.Warn("Failed to open link", zap.String("url", notice.URL), zap.Error(err))
			}
			audit.Log(logging.AuditEvent{Type: logging.AuditLinkOpened, Key: res.Key(), Message: notice.URL, Error: err})
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	bootLog.Info("Verification finished",
		zap.Int("detected", len(report.Detected())),
		zap.Bool("cache_reset", report.CacheReset))
	audit.Timed(logging.AuditEvent{
		Type:    logging.AuditCheckEnd,
		Message: fmt.Sprintf("%d detected", len(report.Detected())),
	}, started)
	return report
}

func withDefaults(opts Options) Options {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Provider == nil {
		opts.Provider = fingerprint.SystemProvider{}
	}
	if opts.Presenter == nil {
		opts.Presenter = notify.HeadlessPresenter{}
	}
	if opts.Opener == nil {
		opts.Opener = notify.NopOpener{Logger: opts.Logger}
	}
	if opts.Conditions == nil {
		opts.Conditions = integrity.DefaultConditions()
	}
	return opts
}

func logResult(log *zap.Logger, res integrity.Result) {
	fields := []zap.Field{
		zap.String("key", res.Key()),
		zap.String("kind", string(res.Condition.Kind)),
		zap.String("path", res.Condition.Path),
		zap.String("status", res.Status.String()),
	}
	if res.Digest != "" {
		fields = append(fields, zap.String("digest", res.Digest))
	}

	switch res.Status {
	case integrity.StatusDetected:
		log.Warn("! "+res.Condition.Title+" !", fields...)
	case integrity.StatusUnevaluable:
		log.Warn("Condition could not be evaluated", append(fields, zap.Error(res.Err))...)
	default:
		log.Debug("Condition checked", fields...)
	}
}

func logDecision(log *zap.Logger, d policy.Decision) {
	fields := []zap.Field{
		zap.String("key", d.Key),
		zap.String("phase", string(d.Phase)),
		zap.String("reason", string(d.Reason)),
		zap.Int("remaining", d.Remaining),
	}
	if d.Warn {
		log.Warn("Showing warning", fields...)
		return
	}
	log.Info("Warning suppressed",
		append(fields, zap.Time("next_eligible_at", d.NextEligibleAt))...)
}

func decisionVerb(d policy.Decision) string {
	if d.Warn {
		return "warn"
	}
	return "suppress"
}

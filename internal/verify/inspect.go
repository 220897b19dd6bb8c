package verify

import (
	"context"

	"modcheck/internal/fingerprint"
	"modcheck/internal/integrity"
	"modcheck/internal/logging"
	"modcheck/internal/policy"
	"modcheck/internal/warncache"
)

// ConditionState is the read-only view of one condition.
type ConditionState struct {
	Result   integrity.Result
	Entry    warncache.Entry
	HasEntry bool
	Decision policy.Decision
}

// Status is the outcome of Inspect.
type Status struct {
	CachePath   string
	Fingerprint string

	// StoredFingerprint is what the cache file holds. When it differs from
	// Fingerprint the next Run discards the history, and the states below
	// already reflect that.
	StoredFingerprint string
	CacheLoaded       bool
	CacheError        error

	Conditions []ConditionState
}

// FingerprintMatches reports whether the stored history belongs to this
// environment.
func (s Status) FingerprintMatches() bool { return s.Fingerprint == s.StoredFingerprint }

// Inspect probes every condition and reports what the policy would decide,
// without saving the cache or showing anything.
func Inspect(ctx context.Context, opts Options) Status {
	opts = withDefaults(opts)

	cache := warncache.Load(opts.CachePath, opts.Logger)
	st := Status{
		CachePath:         opts.CachePath,
		Fingerprint:       fingerprint.Resolve(ctx, opts.Provider, opts.InstallRoot, opts.LoaderVersion, opts.Logger),
		StoredFingerprint: cache.Fingerprint(),
		CacheLoaded:       cache.Loaded(),
		CacheError:        cache.DiscardReason(),
	}
	if !st.FingerprintMatches() {
		cache = warncache.New(opts.CachePath, opts.Logger)
	}

	var probeOpts []integrity.ProbeOption
	if opts.HashFile != nil {
		probeOpts = append(probeOpts, integrity.WithHashFunc(opts.HashFile))
	}
	probe := integrity.NewProbe(opts.InstallRoot, opts.Conditions, probeOpts...)
	engine := policy.New(cache, opts.Policy, policy.WithClock(opts.Clock), policy.WithLogger(opts.Logger))
	probeLog := logging.For(opts.Logger, logging.CategoryProbe)

	for _, res := range probe.EvaluateAll() {
		logResult(probeLog, res)
		entry, ok := cache.Get(res.Key())
		st.Conditions = append(st.Conditions, ConditionState{
			Result:   res,
			Entry:    entry,
			HasEntry: ok,
			Decision: engine.Decide(res.Key()),
		})
	}
	return st
}

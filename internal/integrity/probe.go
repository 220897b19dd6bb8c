// Package integrity classifies the state of a mod installation by hashing a
// small set of well-known marker files under the installation root.
//
// The probe only reads the files named by its condition table. File-system
// failures never escape: a condition that cannot be read is reported as
// Unevaluable and the caller decides how loudly to log it.
package integrity

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Status is the outcome of evaluating one condition.
type Status int

const (
	// StatusNotApplicable means the marker (or a required overlay file) is
	// absent, so there is nothing to check.
	StatusNotApplicable Status = iota

	// StatusClear means the marker was read and the installation is healthy.
	StatusClear

	// StatusDetected means the problem described by the condition is present.
	StatusDetected

	// StatusUnevaluable means a file could not be read (permissions, path too
	// long, ...). The error is kept in Result.Err.
	StatusUnevaluable
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusNotApplicable:
		return "not_applicable"
	case StatusClear:
		return "clear"
	case StatusDetected:
		return "detected"
	case StatusUnevaluable:
		return "unevaluable"
	default:
		return "unknown"
	}
}

// Result is the evaluation of a single condition.
type Result struct {
	Condition Condition
	Status    Status
	Digest    string // digest of the marker file, empty when it was not read
	Err       error
}

// Key returns the condition key.
func (r Result) Key() string { return r.Condition.Key }

// Detected reports whether the condition's problem is present.
func (r Result) Detected() bool { return r.Status == StatusDetected }

// Probe evaluates a condition table against an installation root.
type Probe struct {
	root       string
	conditions []Condition
	hashFile   func(string) (string, error)
	stat       func(string) (fs.FileInfo, error)
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithHashFunc replaces the file hasher. The function receives an absolute
// path and must return an error wrapping fs.ErrNotExist for missing files.
func WithHashFunc(fn func(path string) (string, error)) ProbeOption {
	return func(p *Probe) { p.hashFile = fn }
}

// NewProbe creates a probe for the installation rooted at root.
func NewProbe(root string, conditions []Condition, opts ...ProbeOption) *Probe {
	p := &Probe{
		root:       root,
		conditions: conditions,
		hashFile:   HashFile,
		stat:       os.Stat,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Root returns the installation root.
func (p *Probe) Root() string { return p.root }

// Conditions returns the condition table.
func (p *Probe) Conditions() []Condition { return p.conditions }

// EvaluateAll evaluates every condition in table order.
func (p *Probe) EvaluateAll() []Result {
	results := make([]Result, 0, len(p.conditions))
	for _, c := range p.conditions {
		results = append(results, p.Evaluate(c))
	}
	return results
}

// Evaluate evaluates a single condition.
func (p *Probe) Evaluate(c Condition) Result {
	res := Result{Condition: c}

	for _, rel := range c.RequirePresent {
		present, err := p.exists(rel)
		if err != nil {
			res.Status, res.Err = StatusUnevaluable, err
			return res
		}
		if !present {
			res.Status = StatusNotApplicable
			return res
		}
	}

	digest, err := p.hashFile(p.resolve(c.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// With the overlay installed, a missing marker cannot carry the
			// digest correct load order produces.
			if c.Kind == KindLoadOrder {
				res.Status = StatusDetected
			} else {
				res.Status = StatusNotApplicable
			}
			return res
		}
		res.Status, res.Err = StatusUnevaluable, err
		return res
	}
	res.Digest = digest

	switch c.Kind {
	case KindBaseMissing:
		if !containsDigest(c.GoodHashes, digest) {
			res.Status = StatusDetected
			return res
		}
	case KindLoadOrder:
		// BadHashes belong to another row that reports them.
		if !containsDigest(c.GoodHashes, digest) && !containsDigest(c.BadHashes, digest) {
			res.Status = StatusDetected
			return res
		}
	case KindIncompatiblePack:
		if containsDigest(c.BadHashes, digest) {
			res.Status = StatusDetected
			return res
		}
	default:
		res.Status, res.Err = StatusUnevaluable, ErrInvalidCondition
		return res
	}

	res.Status = StatusClear
	return res
}

func (p *Probe) resolve(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func (p *Probe) exists(rel string) (bool, error) {
	_, err := p.stat(p.resolve(rel))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

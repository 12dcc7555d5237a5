// Package phase holds the result type shared by every processing step of
// the changeset pipeline (tag layers, geometry resolution, annotations).
package phase

import (
	"fmt"
	"strings"
)

// Status is the outcome of one processing step
type Status int

const (
	OK Status = iota
	Partial
	Failed
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Partial:
		return "partial"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports how a named step went. Err is set for Partial and Failed.
type Result struct {
	Name   string
	Status Status
	Err    error
}

// Reason returns a one-line description suitable for reports
func (r Result) Reason() string {
	if r.Err == nil {
		return r.Name + ": " + r.Status.String()
	}
	return fmt.Sprintf("%s: %s: %v", r.Name, r.Status, r.Err)
}

// Run executes fn and converts a returned error or a panic into a Failed result.
func Run(name string, fn func() error) (res Result) {
	res = Result{Name: name, Status: OK}
	defer func() {
		if p := recover(); p != nil {
			res.Status = Failed
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()
	if err := fn(); err != nil {
		res.Status = Failed
		res.Err = err
	}
	return res
}

// Worst returns the most severe status among results
func Worst(results []Result) Status {
	worst := OK
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

// Reasons collects the reasons of every non-OK result
func Reasons(results []Result) []string {
	var out []string
	for _, r := range results {
		if r.Status != OK {
			out = append(out, r.Reason())
		}
	}
	return out
}

// Join renders non-OK reasons on one line
func Join(results []Result) string {
	return strings.Join(Reasons(results), "; ")
}

package diag

import (
	"fmt"
	"strings"

	"github.com/Drolfothesgnir/pagec/reader"
)

// OverflowPolicy determines what happens when the maximum error capacity is reached.
type OverflowPolicy int

const (
	// OverflowNoCap means no limit for error recording.
	OverflowNoCap OverflowPolicy = iota

	// OverflowDrop means all errors after the overflow are simply discarded.
	OverflowDrop

	// OverflowTrunc means all errors after the overflow are discarded, but the number of dropped
	// ones is recorded and an additional error signalling the overflow is added.
	OverflowTrunc
)

// Errors collects translation errors of a compilation session.
// The list can have a maximum capacity, after which further errors are discarded.
type Errors struct {
	policy OverflowPolicy

	list []*TranslationError

	// maxErrors defines how many errors the list can contain.
	maxErrors int

	// overflowed is true if the number of recorded errors reached the maximum capacity.
	overflowed bool

	// droppedCount is the number of errors discarded after the overflow.
	droppedCount int

	// firstDrop is the position of the first discarded error.
	firstDrop reader.Mark
}

// NewErrors creates an Errors collector with the given overflow policy and capacity.
// It returns a ConfigError if cap is negative.
func NewErrors(policy OverflowPolicy, cap int) (*Errors, error) {
	if cap < 0 {
		return nil, NewConfigError(
			IssueNegativeErrorsCap,
			fmt.Errorf("errors cap must be non-negative, got %d", cap),
		)
	}

	return &Errors{
		policy:    policy,
		list:      make([]*TranslationError, 0, cap),
		maxErrors: cap,
	}, nil
}

// IsOverflow reports whether at least one error was discarded.
func (e *Errors) IsOverflow() bool {
	return e.overflowed
}

// DroppedCount is the number of errors discarded after the overflow, counted by [OverflowTrunc] only.
func (e *Errors) DroppedCount() int {
	return e.droppedCount
}

// FirstDrop is the position of the first discarded error.
func (e *Errors) FirstDrop() reader.Mark {
	return e.firstDrop
}

func (e *Errors) List() []*TranslationError {
	return e.list
}

// Len returns the number of recorded errors.
func (e *Errors) Len() int {
	return len(e.list)
}

// Add records err. Errors that are not a *TranslationError are wrapped as [IssueInternal].
func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	te, ok := AsTranslationError(err)
	if !ok {
		te = &TranslationError{Issue: IssueInternal, Message: err.Error(), Err: err}
	}

	if e.policy == OverflowNoCap {
		e.list = append(e.list, te)
		return
	}

	if e.overflowed {
		if e.policy == OverflowTrunc {
			e.droppedCount++
		}
		return
	}

	limit := e.maxErrors
	if e.policy == OverflowTrunc {
		limit = max(e.maxErrors-1, 0) // reserve slot for truncation marker
	}

	if len(e.list) < limit {
		e.list = append(e.list, te)
		return
	}

	e.overflowed = true
	e.firstDrop = te.Mark

	if e.policy == OverflowTrunc {
		e.droppedCount = 1
		if e.maxErrors > 0 {
			e.list = append(e.list, &TranslationError{
				Issue:   IssueErrorsTruncated,
				Mark:    e.firstDrop,
				Message: "too many errors; further errors suppressed",
			})
		}
	}
}

// Err returns nil if no error was recorded, or an [ErrorList] with all recorded errors.
func (e *Errors) Err() error {
	if len(e.list) == 0 {
		return nil
	}

	l := make(ErrorList, len(e.list))
	copy(l, e.list)
	return l
}

// ErrorList is a list of translation errors returned as a single error.
type ErrorList []*TranslationError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}

	var b strings.Builder
	b.WriteString(l[0].Error())
	fmt.Fprintf(&b, " (and %d more errors)", len(l)-1)
	return b.String()
}

func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

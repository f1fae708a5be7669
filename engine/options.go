package engine

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sirupsen/logrus"
)

// OffsetPolicy decides what happens to an offset that is not a multiple of rows.
type OffsetPolicy int

const (
	// OffsetTruncate starts at the page containing offset, i.e. offset / rows.
	OffsetTruncate OffsetPolicy = iota
	// OffsetReject fails the request with a validation error.
	OffsetReject
)

func (p OffsetPolicy) String() string {
	if p == OffsetReject {
		return "reject"
	}
	return "truncate"
}

// ParseOffsetPolicy maps "truncate" and "reject" to their policy. An empty name selects
// OffsetTruncate.
func ParseOffsetPolicy(name string) (OffsetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "truncate":
		return OffsetTruncate, nil
	case "reject":
		return OffsetReject, nil
	}
	return OffsetTruncate, unknownOption("offset policy", name)
}

// PageAdvance selects how a paging predicate reaches its start page.
type PageAdvance int

const (
	// AdvanceSequential calls NextPage once per page, the only move supported by stores with
	// iterator style paging.
	AdvanceSequential PageAdvance = iota
	// AdvanceSeek jumps to the start page with a single SetPage.
	AdvanceSeek
)

func (a PageAdvance) String() string {
	if a == AdvanceSeek {
		return "seek"
	}
	return "sequential"
}

// ParsePageAdvance maps "sequential" and "seek" to their mode. An empty name selects
// AdvanceSequential.
func ParsePageAdvance(name string) (PageAdvance, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sequential":
		return AdvanceSequential, nil
	case "seek":
		return AdvanceSeek, nil
	}
	return AdvanceSequential, unknownOption("page advance", name)
}

func unknownOption(option, name string) error {
	return goerrors.New("unknown "+option+" "+name, goerrors.CategoryValidation).
		WithTextCode("INVALID_ENGINE_OPTION").
		WithMetadata(map[string]any{"option": option, "value": name})
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	offsetPolicy OffsetPolicy
	pageAdvance  PageAdvance
	logger       logrus.FieldLogger
}

// WithOffsetPolicy sets the handling of offsets that are not a multiple of rows.
func WithOffsetPolicy(policy OffsetPolicy) Option {
	return func(o *options) {
		o.offsetPolicy = policy
	}
}

// WithPageAdvance sets how the start page is reached.
func WithPageAdvance(advance PageAdvance) Option {
	return func(o *options) {
		o.pageAdvance = advance
	}
}

// WithLogger sets the logger. Composed queries are logged at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

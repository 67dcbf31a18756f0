package reconciler

import (
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Selector picks the record whose identity a candidate adopts when the
// remote store holds more than one record with the candidate's key.
type Selector func(matches []records.Record) (records.Record, bool)

// options configures a reconciler.
type options struct {
	selector Selector
}

func defaultOptions() *options {
	return &options{
		selector: SelectPrimary,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithSelector replaces the duplicate-match tie-break.
func WithSelector(selector Selector) Option {
	return func(o *options) error {
		if selector == nil {
			return &errors.ValidationError{
				Field:   "selector",
				Message: "cannot be nil",
			}
		}
		o.selector = selector
		return nil
	}
}

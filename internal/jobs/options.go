package jobs

// DefaultMaxDevices caps the device count of an automatic sequence.
const DefaultMaxDevices = 10000

type options struct {
	maxDevices int
}

// Option configures a Manager or the Drafts registry.
type Option func(*options)

// WithMaxDevices sets the largest accepted totalDevices. Values below one
// keep DefaultMaxDevices.
func WithMaxDevices(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDevices = n
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{maxDevices: DefaultMaxDevices}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

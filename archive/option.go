package archive

type options struct {
	compressionLevel int
}

// Option overrides behavior of Archive.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithCompressionLevel sets compression level option.
func WithCompressionLevel(i int) Option {
	return optionFunc(func(o *options) {
		o.compressionLevel = i
	})
}

package metadata

// Field is an optional extracted value.
type Field[T any] struct {
	value T
	ok    bool
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{value: v, ok: true}
}

// None returns an absent field.
func None[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.ok
}

// Present reports whether the field holds a value.
func (f Field[T]) Present() bool {
	return f.ok
}

// Or returns the value, or def when the field is absent.
func (f Field[T]) Or(def T) T {
	if f.ok {
		return f.value
	}

	return def
}

// OrElse returns f when present and next otherwise.
func (f Field[T]) OrElse(next Field[T]) Field[T] {
	if f.ok {
		return f
	}

	return next
}

package errors

// Result is a discriminated success/error value for best-effort steps whose
// failure must not abort the surrounding operation.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a successful value
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Fail wraps an error
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value
func (r Result[T]) IsOk() bool {
	return r.ok
}

// Err returns the failure, or nil for a successful result
func (r Result[T]) Err() error {
	return r.err
}

// Unpack returns the value and error in the usual Go shape
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.err
}

// ValueOr returns the value or fallback when the result failed
func (r Result[T]) ValueOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.value
}

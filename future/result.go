package future

// Result holds the outcome of a settled future: a value or an error.
type Result[T any] struct {
	Value T
	Error error
}

func (r Result[T]) IsSuccess() bool {
	return r.Error == nil
}

func (r Result[T]) IsFailure() bool {
	return r.Error != nil
}

func (r Result[T]) Get() (T, error) { //nolint:ireturn
	if r.IsFailure() {
		var zero T

		return zero, r.Error
	}

	return r.Value, nil
}

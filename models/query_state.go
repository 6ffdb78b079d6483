package models

// Status is the lifecycle position of one result stream.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// Terminal reports whether the status ends a request.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusEmpty || s == StatusError
}

// QueryState is the value the presentation layer renders for a result stream.
// Data is only meaningful when Status is success; Error only when Status is error.
// Build values with the constructors below so the two never leak into other states.
type QueryState[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func Idle[T any]() QueryState[T] {
	return QueryState[T]{Status: StatusIdle}
}

func Loading[T any]() QueryState[T] {
	return QueryState[T]{Status: StatusLoading}
}

func Success[T any](data T) QueryState[T] {
	return QueryState[T]{Status: StatusSuccess, Data: data}
}

func Empty[T any]() QueryState[T] {
	return QueryState[T]{Status: StatusEmpty}
}

func Failed[T any](message string) QueryState[T] {
	return QueryState[T]{Status: StatusError, Error: message}
}

func (q QueryState[T]) IsLoading() bool { return q.Status == StatusLoading }

// HasData reports whether Data carries a result.
func (q QueryState[T]) HasData() bool { return q.Status == StatusSuccess }

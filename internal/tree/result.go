package tree

// Status 描述 provider 对一次查询的态度。
type Status uint8

const (
	// StatusDelegate 表示本 provider 不负责该查询，应继续询问链上的下一个 provider。
	StatusDelegate Status = iota
	// StatusEmpty 表示本 provider 负责该查询但没有结果，链在此终止。
	StatusEmpty
	// StatusValue 表示本 provider 给出了权威结果，链在此终止。
	StatusValue
)

func (s Status) String() string {
	switch s {
	case StatusDelegate:
		return "delegate"
	case StatusEmpty:
		return "empty"
	case StatusValue:
		return "value"
	default:
		return "unknown"
	}
}

// Result 是 provider 查询的三态返回值，用显式返回替代对共享上下文的 abort 调用。
type Result[T any] struct {
	Status Status
	Value  T
}

// Delegate 返回“交给下一个 provider”的结果。
func Delegate[T any]() Result[T] {
	return Result[T]{Status: StatusDelegate}
}

// Empty 返回权威的空结果。
func Empty[T any]() Result[T] {
	return Result[T]{Status: StatusEmpty}
}

// Value 返回权威结果。
func Value[T any](v T) Result[T] {
	return Result[T]{Status: StatusValue, Value: v}
}

// Handled 报告该结果是否终止 provider 链。
func (r Result[T]) Handled() bool {
	return r.Status != StatusDelegate
}

// Get 返回值以及是否存在权威值。
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Status == StatusValue
}

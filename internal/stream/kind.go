package stream

// ElemKind identifies the element type carried by a stream. The
// reference implementation specializes generic blocks per element kind
// via templates (Design Note 2); here the same generic code is written
// once with Go's type parameters, and ElemKind only names the element
// types; no scheduler code dispatches on it.
type ElemKind int

const (
	KindByte ElemKind = iota
	KindFloat
	KindComplex
	KindPDU
)

func (k ElemKind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindFloat:
		return "float"
	case KindComplex:
		return "complex"
	case KindPDU:
		return "pdu"
	default:
		return "unknown"
	}
}

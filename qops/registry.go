// Package qops implements operator dispatch (component H): a registry
// keyed by (operator, left Kind, right Kind), the promotion lattice
// fallback for scalar/scalar combinations the registry has no exact
// entry for, and a parse-time constant-folding hook.
package qops

import (
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

// BinaryOp computes a two-operand operator's result. Implementations
// must not assume ownership of a or b beyond the call: callers retain
// responsibility for derefing their own operands.
type BinaryOp func(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value

type opKey struct {
	op string
	a  qvalue.Kind
	b  qvalue.Kind
}

var registry = map[opKey]BinaryOp{}

// Register installs fn as the exact handler for op applied to a left
// operand of kind ka and a right operand of kind kb. Later calls with
// the same key overwrite earlier ones in the process-wide registry.
func Register(op string, ka, kb qvalue.Kind, fn BinaryOp) {
	registry[opKey{op, ka, kb}] = fn
}

// Dispatch looks up an exact (op, a.Kind(), b.Kind()) handler; if none
// is registered and both kinds participate in the scalar promotion
// lattice, it promotes both operands to the higher kind and retries
// once. Returns Nothing() and raises OPERATOR-ERROR on sink if no
// handler applies even after promotion.
func Dispatch(op string, a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
	ka, kb := a.Kind(), b.Kind()
	if fn, ok := registry[opKey{op, ka, kb}]; ok {
		return fn(a, b, sink)
	}
	if promoted, ok := qvalue.Promote(ka, kb); ok {
		if fn, ok := registry[opKey{op, promoted, promoted}]; ok {
			return fn(a, b, sink)
		}
	}
	sink.RaiseSystem("OPERATOR-ERROR", "operator %q is not defined between %s and %s", op, ka, kb)
	return qvalue.Nothing()
}

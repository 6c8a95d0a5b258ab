package qops

import (
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

// EqualsOp and StrictEqualsOp implement `==` (soft, promoting) and
// `===` (hard, no promotion) directly atop qvalue.Value's own
// comparison methods — neither needs a Kind-pair registry entry since
// both are total over every (Kind, Kind) combination already.
const (
	EqualsOp       = "=="
	StrictEqualsOp = "==="
)

func Equals(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
	return qvalue.NewBool(a.IsEqualSoft(b))
}

func StrictEquals(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
	return qvalue.NewBool(a.IsEqualHard(b))
}

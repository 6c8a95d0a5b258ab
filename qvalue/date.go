package qvalue

import (
	"time"

	"github.com/qorerun/qcore/xsink"
)

// Date is the heap Date/time variant. It distinguishes absolute dates
// (a fixed instant) from relative dates (a duration, "3 hours") the way
// the original DateTime class does with its relative flag, since the
// two compare and arithmetic differently (§9 supplemented feature: the
// distilled spec only mentions Date in passing).
type Date struct {
	refCounted
	T        time.Time
	Relative bool
	Dur      time.Duration
}

// NewAbsoluteDate returns a Date node fixed at instant t.
func NewAbsoluteDate(t time.Time) *Date {
	return &Date{refCounted: newRefCounted(), T: t}
}

// NewRelativeDate returns a Date node representing a duration.
func NewRelativeDate(d time.Duration) *Date {
	return &Date{refCounted: newRefCounted(), Relative: true, Dur: d}
}

func (d *Date) Kind() Kind      { return KindDate }
func (d *Date) IsValue() bool   { return true }
func (d *Date) NeedsEval() bool { return false }

func (d *Date) RealCopy() Node {
	if d.Relative {
		return NewRelativeDate(d.Dur)
	}
	return NewAbsoluteDate(d.T)
}

func (d *Date) Deref(sink *xsink.Sink) bool {
	return d.deref(sink, nil)
}

func (d *Date) epochSeconds() int64 {
	if d.Relative {
		return int64(d.Dur / time.Second)
	}
	return d.T.Unix()
}

func (d *Date) String() string {
	if d.Relative {
		return d.Dur.String()
	}
	return d.T.Format(time.RFC3339Nano)
}

func (d *Date) IsEqualSoft(other Node) bool {
	return d.IsEqualHard(other)
}

func (d *Date) IsEqualHard(other Node) bool {
	o, ok := other.(*Date)
	if !ok || o.Relative != d.Relative {
		return false
	}
	if d.Relative {
		return o.Dur == d.Dur
	}
	return o.T.Equal(d.T)
}

package facade

import (
	"math/big"
	"time"

	"github.com/joeycumines/jsadapter/internal/kind"
)

// BigInt is an arbitrary precision JavaScript integer. The wrapped value is
// private to the facade; accessors return copies.
type BigInt struct {
	v big.Int
}

// NewBigInt copies i into a new BigInt. A nil i yields zero.
func NewBigInt(i *big.Int) *BigInt {
	b := new(BigInt)
	if i != nil {
		b.v.Set(i)
	}
	return b
}

// BigIntFromInt64 returns the BigInt for n.
func BigIntFromInt64(n int64) *BigInt {
	b := new(BigInt)
	b.v.SetInt64(n)
	return b
}

// Int returns a copy of the integer.
func (b *BigInt) Int() *big.Int {
	return new(big.Int).Set(&b.v)
}

// Cmp compares b with o, as big.Int.Cmp does.
func (b *BigInt) Cmp(o *BigInt) int {
	return b.v.Cmp(&o.v)
}

func (*BigInt) Kind() kind.Kind { return kind.BigInt }

func (b *BigInt) String() string { return b.v.String() + "n" }

func (*BigInt) isValue() {}

// Date is a JavaScript Date. JavaScript dates have millisecond precision; an
// invalid date (one whose time value is NaN) has Valid() == false.
type Date struct {
	t     time.Time
	valid bool
}

// NewDate returns the Date for t, truncated to milliseconds.
func NewDate(t time.Time) Date {
	return Date{t: time.UnixMilli(t.UnixMilli()).UTC(), valid: true}
}

// DateFromMillis returns the Date at ms milliseconds since the Unix epoch.
func DateFromMillis(ms int64) Date {
	return Date{t: time.UnixMilli(ms).UTC(), valid: true}
}

// InvalidDate returns the Date whose time value is NaN.
func InvalidDate() Date {
	return Date{}
}

// Time returns the instant, in UTC. It is the zero time for invalid dates.
func (d Date) Time() time.Time { return d.t }

// UnixMilli returns the JavaScript time value.
func (d Date) UnixMilli() int64 { return d.t.UnixMilli() }

// Valid reports whether the date has a time value.
func (d Date) Valid() bool { return d.valid }

func (Date) Kind() kind.Kind { return kind.Date }

func (d Date) String() string {
	if !d.valid {
		return "Invalid Date"
	}
	return d.t.Format("2006-01-02T15:04:05.000Z07:00")
}

func (Date) isValue() {}

package aggregate

// Totals is the count and byte sum under one key.
type Totals struct {
	Count int64
	Bytes int64
}

// Add returns t plus o.
func (t Totals) Add(o Totals) Totals {
	return Totals{Count: t.Count + o.Count, Bytes: t.Bytes + o.Bytes}
}

// Accumulator maps keys to totals. Missing keys read as zero.
type Accumulator map[Key]Totals

// NewAccumulator returns an empty accumulator.
func NewAccumulator() Accumulator {
	return make(Accumulator)
}

// Add increments the totals under k.
func (a Accumulator) Add(k Key, count, bytes int64) {
	t := a[k]
	t.Count += count
	t.Bytes += bytes
	a[k] = t
}

// Total sums every entry.
func (a Accumulator) Total() Totals {
	var sum Totals
	for _, t := range a {
		sum = sum.Add(t)
	}
	return sum
}

package field

// Optional is an accessor that may be deliberately absent from a profile.
// Absent accessors resolve to nothing, which callers treat as "field not
// requested" rather than "field empty".
type Optional struct {
	acc     Accessor
	present bool
}

// Some wraps a configured accessor.
func Some(a Accessor) Optional {
	return Optional{acc: a, present: true}
}

// None is the absent accessor.
func None() Optional {
	return Optional{}
}

// Present reports whether an accessor is configured.
func (o Optional) Present() bool { return o.present }

// Get returns the accessor and whether it is configured.
func (o Optional) Get() (Accessor, bool) { return o.acc, o.present }

// Resolve delegates to the wrapped accessor. Absent accessors never resolve.
func (o Optional) Resolve(row Row) (any, bool) {
	if !o.present {
		return nil, false
	}
	return o.acc.Resolve(row)
}

// String resolves and stringifies; absent accessors yield "".
func (o Optional) String(row Row) string {
	if !o.present {
		return ""
	}
	return o.acc.String(row)
}

// Number resolves as a float64; absent accessors never resolve.
func (o Optional) Number(row Row) (float64, bool) {
	if !o.present {
		return 0, false
	}
	return o.acc.Number(row)
}

package compiler

import "strconv"

// Binder allocates $n placeholders and keeps the ordered parameter list.
// Placeholders are numbered by bind order, so the args slice always matches
// the statement's parameter positions exactly.
type Binder struct {
	args []any
}

// Bind records a value and returns its placeholder.
func (b *Binder) Bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Args returns the ordered parameter list.
func (b *Binder) Args() []any {
	return b.args
}

package query

// Param is one bound argument together with the filter that produced it.
type Param struct {
	Name  string
	Value any
}

// Binder collects positional arguments for a single statement.
//
// Bind returns the placeholder for the value it just recorded, so callers
// write the SQL fragment and register the argument in one expression:
//
//	cond := "a.price >= " + b.Bind("minPrice", *f.MinPrice)
//
// A Binder may be shared by several builders (WHERE, then LIMIT/OFFSET) as
// long as the fragments end up in the same statement.
type Binder struct {
	dialect Dialect
	params  []Param
}

func NewBinder(d Dialect) *Binder {
	return &Binder{dialect: d}
}

// Bind records v under name and returns its placeholder.
func (b *Binder) Bind(name string, v any) string {
	b.params = append(b.params, Param{Name: name, Value: v})
	return b.dialect.Placeholder(len(b.params))
}

func (b *Binder) Dialect() Dialect { return b.dialect }

// Args returns the values in placeholder order, ready for ExecContext or
// QueryContext.
func (b *Binder) Args() []any {
	args := make([]any, len(b.params))
	for i, p := range b.params {
		args[i] = p.Value
	}
	return args
}

func (b *Binder) Params() []Param {
	out := make([]Param, len(b.params))
	copy(out, b.params)
	return out
}

func (b *Binder) Names() []string {
	names := make([]string, len(b.params))
	for i, p := range b.params {
		names[i] = p.Name
	}
	return names
}

func (b *Binder) Len() int { return len(b.params) }

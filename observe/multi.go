package observe

// Multi calls several observers in order. Each one receives the result of
// the previous one; the last result is returned.
type Multi []Observer

func (m Multi) Register(value any, fn, ident, typeName string) any {
	for _, o := range m {
		value = o.Register(value, fn, ident, typeName)
	}
	return value
}

func (m Multi) Propose(value any, fn, ident string) any {
	for _, o := range m {
		value = o.Propose(value, fn, ident)
	}
	return value
}

func (m Multi) Request(value any, fn, ident string) any {
	for _, o := range m {
		value = o.Request(value, fn, ident)
	}
	return value
}

func (m Multi) RequestArg(value any) any {
	for _, o := range m {
		if ar, ok := o.(ArgRequester); ok {
			value = ar.RequestArg(value)
			continue
		}
		value = o.Request(value, "", "")
	}
	return value
}

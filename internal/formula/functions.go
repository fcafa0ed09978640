package formula

type function func(args []float64) (Value, error)

var functions = map[string]function{
	"SUM":     sum,
	"MIN":     minimum,
	"MAX":     maximum,
	"AVG":     average,
	"AVERAGE": average,
}

func sum(args []float64) (Value, error) {
	var total float64
	for _, a := range args {
		total += a
	}
	return Number(total), nil
}

// minimum of no arguments is 0, like a spreadsheet's MIN of an empty range.
func minimum(args []float64) (Value, error) {
	if len(args) == 0 {
		return Number(0), nil
	}
	m := args[0]
	for _, a := range args[1:] {
		m = min(m, a)
	}
	return Number(m), nil
}

func maximum(args []float64) (Value, error) {
	if len(args) == 0 {
		return Number(0), nil
	}
	m := args[0]
	for _, a := range args[1:] {
		m = max(m, a)
	}
	return Number(m), nil
}

func average(args []float64) (Value, error) {
	if len(args) == 0 {
		return Value{}, ErrDivZero
	}
	total, _ := sum(args)
	return Number(total.Num / float64(len(args))), nil
}

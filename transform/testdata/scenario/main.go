package main

import (
	"fmt"

	"github.com/gnolang/rxobs/observe"
)

type counter struct{ n int }

func (c *counter) Inc() { c.n++ }

//rxobs:decorate context = obs, propose = [k], register = [c], request = [q]
func compute(obs observe.Observer) (int, int) {
	k := 1
	q := 2
	s := k + q

	c := counter{}
	inc := c.Inc
	inc()
	return s, c.n
}

func main() {
	h := observe.NewHistory()
	s, n := compute(h)
	fmt.Println("s =", s)
	fmt.Println("counter =", n)
	for rec := range h.All() {
		fmt.Printf("%s %s=%s\n", rec.Op, observe.Path(rec.Func, rec.Ident), rec.Value)
	}
}

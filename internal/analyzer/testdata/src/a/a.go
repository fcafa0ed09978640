package a

/* want `"ghost" does not occur in f` */ //rxobs:decorate context = obs, propose = [x, ghost], register = [], request = []
func f(obs any) int {
	x := 1
	return x
}

//rxobs:decorate context = obs,
//  propose = [y], register = [], request = [y]
func g(obs any) int {
	y := 2
	return y
}

/* want `malformed list` */ //rxobs:decorate context = obs, propose = [y register = [], request = []
func broken(obs any) {}

func h(obs any) {} // want `"z" does not occur in h`

func plain() {}

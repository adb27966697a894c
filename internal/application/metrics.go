package application

import "expvar"

// counters is published under /debug/vars as "auth".
var counters = expvar.NewMap("auth")

func count(action string) { counters.Add(action, 1) }

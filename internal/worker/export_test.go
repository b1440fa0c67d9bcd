package worker

import "time"

func SetReapInterval(p *Pool, d time.Duration) { p.reapEvery = d }

// Package ports probes local TCP port availability.
package ports

import (
	"fmt"
	"net"
	"sort"

	"github.com/localdeck/localdeck/internal/config"
)

// Check is the probe result for one port.
type Check struct {
	Name      string
	Port      int
	Available bool
}

// Available reports whether a TCP port can be bound on localhost.
func Available(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// CheckAll probes every port in the set and returns the results sorted
// by port number.
func CheckAll(p config.Ports) []Check {
	checks := []Check{
		{Name: "http", Port: p.HTTP},
		{Name: "https", Port: p.HTTPS},
		{Name: "backend", Port: p.Backend},
	}
	if p.MySQL != 0 {
		checks = append(checks, Check{Name: "mysql", Port: p.MySQL})
	}
	if p.Postgres != 0 {
		checks = append(checks, Check{Name: "postgres", Port: p.Postgres})
	}
	if p.Redis != 0 {
		checks = append(checks, Check{Name: "redis", Port: p.Redis})
	}

	for i := range checks {
		checks[i].Available = Available(checks[i].Port)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Port < checks[j].Port })
	return checks
}

// Conflicts returns the names of ports already in use, sorted by port.
func Conflicts(p config.Ports) []string {
	var names []string
	for _, c := range CheckAll(p) {
		if !c.Available {
			names = append(names, fmt.Sprintf("%s (%d)", c.Name, c.Port))
		}
	}
	return names
}

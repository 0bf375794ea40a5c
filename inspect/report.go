package inspect

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Status of a single check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
)

// Check is one verified property of the live network.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Report collects check results in the order they ran.
type Report struct {
	VpcID  string
	Checks []Check
}

func (r *Report) ok(name, format string, args ...interface{}) {
	r.Checks = append(r.Checks, Check{Name: name, Status: StatusOK, Detail: fmt.Sprintf(format, args...)})
}

func (r *Report) fail(name, format string, args ...interface{}) {
	r.Checks = append(r.Checks, Check{Name: name, Status: StatusFail, Detail: fmt.Sprintf(format, args...)})
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

// Failures returns only the failed checks.
func (r *Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c)
		}
	}
	return out
}

// Render writes the report as a table.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "Status", "Detail"})
	table.SetAutoWrapText(false)
	for _, c := range r.Checks {
		table.Append([]string{c.Name, string(c.Status), c.Detail})
	}
	table.Render()
}

package stage

// Health reports whether a stage's external collaborators are usable.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy builds a passing health report.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy builds a failing health report with an operator-facing detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

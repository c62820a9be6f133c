package workflow

// jobCreated runs after a job row is inserted and before the job is
// registered as active. It is a package-level variable so tests can override it.
var jobCreated = func(string) {}

// SetJobCreatedForTests overrides the hook run between job creation and
// registration.
func SetJobCreatedForTests(fn func(jobID string)) func() {
	previous := jobCreated
	jobCreated = fn
	return func() {
		jobCreated = previous
	}
}

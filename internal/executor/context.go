package executor

// Context is the minimal, freshly constructed state handed to one unit of
// work. Units never share a context; a failing or slow unit cannot corrupt
// its neighbours through it.
type Context struct {
	RunID   string
	StepID  string
	WorkDir string

	// Notes are advisory knowledge-store content for the step's target.
	Notes string

	// Response carries a resolved checkpoint's answer when the step is the
	// resume point. Empty otherwise.
	Response string
}

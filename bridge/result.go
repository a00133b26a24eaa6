package bridge

// Outcome classifies how one pipeline run ended. Every request produces
// exactly one Result, consumed exactly once by the response translator.
type Outcome int

const (
	// OutcomeOutput: the script ran and produced a non-empty body.
	OutcomeOutput Outcome = iota
	// OutcomeNoOutput: the script ran and produced nothing.
	OutcomeNoOutput
	// OutcomeCompileIO: the script file is missing or unreadable; the
	// transport applies its own fallback.
	OutcomeCompileIO
	// OutcomeCompileVM: the interpreter could not allocate a VM.
	OutcomeCompileVM
	// OutcomeCompileOther: syntax or semantic error in the script.
	OutcomeCompileOther
	// OutcomeRuntimeError: the script failed during execution.
	OutcomeRuntimeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOutput:
		return "output"
	case OutcomeNoOutput:
		return "no output"
	case OutcomeCompileIO:
		return "compile io error"
	case OutcomeCompileVM:
		return "vm initialization error"
	case OutcomeCompileOther:
		return "compile error"
	case OutcomeRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// Result is the terminal state of one pipeline run.
type Result struct {
	Outcome Outcome
	Body    []byte // set only for OutcomeOutput
	Code    int    // interpreter status code, set for OutcomeCompileOther
}

package stagefile

// SplitError is returned when a file cannot be split, either because the
// requested split count is invalid or because of an I/O failure partway
// through. Partial output files are always removed before it is returned.
type SplitError struct {
	Msg string
	Err error
}

func (e *SplitError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *SplitError) Unwrap() error { return e.Err }

// CompressionError is returned when gzip compression of a file fails.
type CompressionError struct {
	Msg string
	Err error
}

func (e *CompressionError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *CompressionError) Unwrap() error { return e.Err }

// ConcatError is returned when files cannot be concatenated, including the
// case of an empty input list.
type ConcatError struct {
	Msg string
	Err error
}

func (e *ConcatError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConcatError) Unwrap() error { return e.Err }

package stagefile

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Concatenate appends the raw bytes of each input file, in order, to output.
// The output file is opened in append mode, so repeated calls accumulate.
// When remove is set, each input is deleted immediately after it has been
// fully appended, keeping peak disk usage down on large merges.
//
// An empty input list is a caller error, not a no-op.
func Concatenate(inputs []string, output string, remove bool) error {
	if len(inputs) == 0 {
		return &ConcatError{Msg: "input list is empty"}
	}

	log.WithFields(log.Fields{
		"inputs": len(inputs),
		"output": output,
	}).Info("concatenating files")

	out, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &ConcatError{Msg: "error concatenating files", Err: err}
	}

	for _, p := range inputs {
		if err := appendFile(out, p); err != nil {
			out.Close()
			return &ConcatError{Msg: "error concatenating files", Err: err}
		}
		if remove {
			if err := os.Remove(p); err != nil {
				out.Close()
				return &ConcatError{Msg: "error concatenating files", Err: err}
			}
		}
	}

	if err := out.Close(); err != nil {
		return &ConcatError{Msg: "error concatenating files", Err: err}
	}
	return nil
}

func appendFile(out *os.File, input string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(out, in)
	return err
}

// WriteRows writes delimited rows to path, one line per row, truncating any
// existing file. Unload pipelines use it to emit the header line ahead of the
// concatenated data files.
func WriteRows(rows [][]string, delim, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &ConcatError{Msg: "error writing rows", Err: err}
	}

	for _, row := range rows {
		if _, err := f.WriteString(strings.Join(row, delim) + "\n"); err != nil {
			f.Close()
			return &ConcatError{Msg: "error writing rows", Err: err}
		}
	}
	if err := f.Close(); err != nil {
		return &ConcatError{Msg: "error writing rows", Err: err}
	}
	return nil
}

// Package stagefile prepares local files for bulk warehouse loads and
// reassembles them after unloads. It covers splitting one file into
// round-robin parts, gzip compression of part lists, and concatenation of
// downloaded parts back into a single file.
package stagefile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// splitOutputs owns the set of part files created by Split. Every exit path
// goes through either closeAll (success) or discard (failure), so a failed
// split never leaves partial part files behind.
type splitOutputs struct {
	files   []*os.File
	writers []*bufio.Writer
}

func openSplitOutputs(outputPrefix string, splits int) (*splitOutputs, error) {
	o := &splitOutputs{
		files:   make([]*os.File, 0, splits),
		writers: make([]*bufio.Writer, 0, splits),
	}
	for i := 0; i < splits; i++ {
		f, err := os.Create(fmt.Sprintf("%s.%d", outputPrefix, i))
		if err != nil {
			o.discard()
			return nil, err
		}
		o.files = append(o.files, f)
		o.writers = append(o.writers, bufio.NewWriter(f))
	}
	return o, nil
}

func (o *splitOutputs) write(part int, line []byte) error {
	_, err := o.writers[part].Write(line)
	return err
}

func (o *splitOutputs) closeAll() error {
	for i, f := range o.files {
		if err := o.writers[i].Flush(); err != nil {
			return err
		} else if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// discard closes and deletes every part file that was opened.
func (o *splitOutputs) discard() {
	for _, f := range o.files {
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
}

func (o *splitOutputs) names() []string {
	names := make([]string, len(o.files))
	for i, f := range o.files {
		names[i] = f.Name()
	}
	return names
}

// Split distributes the lines of input across splits part files named
// {outputPrefix}.{0..splits-1}, wrapping around one line at a time. The first
// ignoreHeader lines of the input are dropped entirely and never written to
// any part. When splits is 1 the input is returned unchanged and no files are
// created.
//
// If anything fails after part files were opened, every part file is closed
// and deleted before a SplitError is returned.
func Split(input, outputPrefix string, splits, ignoreHeader int) ([]string, error) {
	if splits < 1 {
		log.WithField("splits", splits).Error("number of splits is invalid")
		return nil, &SplitError{Msg: "number of splits must be greater than zero"}
	}
	if splits == 1 {
		return []string{input}, nil
	}

	log.WithFields(log.Fields{
		"input":  input,
		"splits": splits,
	}).Info("splitting file")

	outputs, err := openSplitOutputs(outputPrefix, splits)
	if err != nil {
		return nil, &SplitError{Msg: "error splitting the file", Err: err}
	}

	if err := distributeLines(input, outputs, splits, ignoreHeader); err != nil {
		log.WithError(err).Error("error splitting the file, cleaning up part files")
		outputs.discard()
		return nil, &SplitError{Msg: "error splitting the file", Err: err}
	}

	if err := outputs.closeAll(); err != nil {
		outputs.discard()
		return nil, &SplitError{Msg: "error splitting the file", Err: err}
	}
	return outputs.names(), nil
}

func distributeLines(input string, outputs *splitOutputs, splits, ignoreHeader int) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	r := bufio.NewReader(in)
	part := 0
	skipped := 0
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			if skipped < ignoreHeader {
				skipped++
			} else if werr := outputs.write(part, line); werr != nil {
				return werr
			} else {
				part = (part + 1) % splits
			}
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

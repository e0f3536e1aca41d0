package stagefile

import (
	"compress/flate"
	"io"
	"os"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

const compressionLevel = flate.BestSpeed

// Compress streams input through gzip into output. The input file is left in
// place.
func Compress(input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return &CompressionError{Msg: "error compressing the file", Err: err}
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return &CompressionError{Msg: "error compressing the file", Err: err}
	}

	log.WithFields(log.Fields{
		"input":  input,
		"output": output,
	}).Info("compressing file")

	gz, err := pgzip.NewWriterLevel(out, compressionLevel)
	if err != nil {
		// Only possible with an invalid compression level.
		panic("invalid compression level for pgzip.NewWriterLevel")
	}

	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return &CompressionError{Msg: "error compressing the file", Err: err}
	} else if err := gz.Close(); err != nil {
		out.Close()
		return &CompressionError{Msg: "error compressing the file", Err: err}
	} else if err := out.Close(); err != nil {
		return &CompressionError{Msg: "error compressing the file", Err: err}
	}
	return nil
}

// CompressAll compresses each file in paths to {path}.gz, deleting the
// uncompressed original once its compressed counterpart is written, and
// returns the new paths in input order. Compression is serial and not
// transactional: a failure partway leaves earlier files already compressed
// and the failing file's original intact.
func CompressAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		gz := p + ".gz"
		if err := Compress(p, gz); err != nil {
			return nil, err
		}
		if err := os.Remove(p); err != nil {
			return nil, &CompressionError{Msg: "error removing the uncompressed file", Err: err}
		}
		out = append(out, gz)
	}
	return out, nil
}

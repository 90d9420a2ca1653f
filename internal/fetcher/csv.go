package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// maxParseErrors bounds how many malformed records a lenient stream tolerates.
const maxParseErrors = 1000

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	Comment    rune            // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool

	// ContinueOnError skips malformed records instead of stopping. The
	// skipped records are reported together as a *ParseErrors once the
	// stream ends.
	ContinueOnError bool
}

// ParseErrors collects the record-level failures of a lenient stream.
type ParseErrors struct {
	Errs []error
}

func (p *ParseErrors) Error() string {
	if len(p.Errs) == 1 {
		return p.Errs[0].Error()
	}
	return fmt.Sprintf("csv: %d malformed records (first: %v)", len(p.Errs), p.Errs[0])
}

// AsParseErrors returns the individual record errors carried by err, or err
// itself when it is not a *ParseErrors.
func AsParseErrors(err error) []error {
	if err == nil {
		return nil
	}
	var pe *ParseErrors
	if errors.As(err, &pe) {
		return pe.Errs
	}
	return []error{err}
}

// StreamCSV reads a CSV file and sends rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		var skipped []error
		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				if !opts.ContinueOnError {
					errCh <- eris.Wrap(err, "csv: read row")
					return
				}
				skipped = append(skipped, eris.Wrap(err, "csv: read row"))
				if len(skipped) >= maxParseErrors {
					break
				}
				continue
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}

		if len(skipped) > 0 {
			errCh <- &ParseErrors{Errs: skipped}
		}
	}()

	return rowCh, errCh
}

package fetcher

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// StreamXML decodes every element whose local name is in names and sends it
// to a channel. T must be a struct with appropriate xml tags; an XMLName
// field tells callers which element matched.
// Both channels are closed when processing completes.
func StreamXML[T any](ctx context.Context, r io.Reader, names ...string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := xml.NewDecoder(r)
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || !wanted[se.Name.Local] {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

// xmlLeaf is a text-only element.
type xmlLeaf struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// listingPage is one page of an S3 ListObjectsV2 response.
type listingPage struct {
	Keys      []string
	Truncated bool
	NextToken string
}

// parseListing extracts object keys from a bucket listing. Keys are read
// wherever a Key element appears, which covers both Contents/Key and the
// legacy flat layout.
func parseListing(ctx context.Context, r io.Reader) (listingPage, error) {
	var page listingPage
	leafCh, errCh := StreamXML[xmlLeaf](ctx, r, "Key", "IsTruncated", "NextContinuationToken")
	for leaf := range leafCh {
		v := strings.TrimSpace(leaf.Value)
		switch leaf.XMLName.Local {
		case "Key":
			if v != "" {
				page.Keys = append(page.Keys, v)
			}
		case "IsTruncated":
			page.Truncated = strings.EqualFold(v, "true")
		case "NextContinuationToken":
			page.NextToken = v
		}
	}
	for err := range errCh {
		if err != nil {
			return listingPage{}, err
		}
	}
	return page, nil
}

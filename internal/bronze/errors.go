package bronze

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind names a raw input category.
type Kind string

const (
	KindSales   Kind = "sales"
	KindReviews Kind = "reviews"
)

// NoInputFilesError reports that a required raw input category has no files
// at all.
type NoInputFilesError struct {
	Kind Kind
	Dir  string
}

func (e *NoInputFilesError) Error() string {
	return fmt.Sprintf("bronze: no %s input files in %s", e.Kind, e.Dir)
}

// ErrUnknownSchema is returned when a file's columns match no mapping.
var ErrUnknownSchema = eris.New("bronze: columns match no known schema")

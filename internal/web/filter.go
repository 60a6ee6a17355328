package web

import (
	"errors"
	"fmt"
	"net/http"

	"daybook/internal/model"
)

type filterKind int

const (
	filterNone filterKind = iota
	filterRange
	filterTitle
)

// filter is the selection shared by list exports and bulk removals.
type filter struct {
	kind     filterKind
	from, to model.Date
	title    string
}

func (f filter) String() string {
	switch f.kind {
	case filterRange:
		return fmt.Sprintf("range %s..%s", f.from, f.to)
	case filterTitle:
		return fmt.Sprintf("title %q", f.title)
	default:
		return "all"
	}
}

// parseFilter reads ?from=&to= or ?title= from the query string. Both range
// bounds are required together and may not be combined with a title. An
// inverted range is passed through as-is and selects nothing.
//
// A bound that is present but blank still counts as a range, so it fails
// validation instead of falling through to the unfiltered selection.
func parseFilter(r *http.Request) (filter, error) {
	q := r.URL.Query()
	fromStr, toStr := q.Get("from"), q.Get("to")
	title, hasTitle := q.Get("title"), q.Has("title")
	// 빈 값이라도 키가 있으면 범위 요청으로 본다 (DELETE 가 전체 삭제로 빠지지 않도록).
	hasRange := q.Has("from") || q.Has("to")

	switch {
	case hasRange && hasTitle:
		return filter{}, errors.New("title cannot be combined with from/to")
	case hasTitle:
		return filter{kind: filterTitle, title: title}, nil
	case !hasRange:
		return filter{kind: filterNone}, nil
	case fromStr == "" || toStr == "":
		return filter{}, errors.New("from and to must be given together")
	}

	from, err := model.ParseDate(fromStr)
	if err != nil {
		return filter{}, err
	}
	to, err := model.ParseDate(toStr)
	if err != nil {
		return filter{}, err
	}
	return filter{kind: filterRange, from: from, to: to}, nil
}

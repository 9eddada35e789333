// Package transfer converts question sets to and from the JSON interchange
// format used for backups.
//
// An export document is a JSON array of Records. Import accepts the same
// array, or a single Record object, and validates every record on its own:
// a bad record is skipped and counted, while a document that is not JSON (or
// not an array/object) fails as a whole.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
)

// Record is one question in interchange form.
type Record struct {
	Question    string  `json:"question"`
	Link        string  `json:"link"`
	Topic       string  `json:"topic"`
	Difficulty  string  `json:"difficulty"`
	Source      *string `json:"source"`
	CreatedAt   *string `json:"createdAt"`
	LastRevised *string `json:"lastRevised"`
}

// timeLayout keeps sub-second precision so an export round-trips exactly.
const timeLayout = time.RFC3339Nano

// ToExportRecords converts questions to records, preserving order.
// A missing difficulty is written as Medium.
func ToExportRecords(questions []model.Question) []Record {
	records := make([]Record, len(questions))
	for i, q := range questions {
		r := Record{
			Question:   q.Question,
			Link:       q.Link,
			Topic:      q.Topic,
			Difficulty: string(q.ResolvedDifficulty()),
			Source:     q.Source,
		}
		if !q.CreatedAt.IsZero() {
			s := q.CreatedAt.Format(timeLayout)
			r.CreatedAt = &s
		}
		if q.LastRevised != nil {
			s := q.LastRevised.Format(timeLayout)
			r.LastRevised = &s
		}
		records[i] = r
	}
	return records
}

// Encode writes records as an indented JSON array.
func Encode(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("transfer: encoding export: %w", err)
	}
	return nil
}

// Result is the outcome of ParseImport. Accepted questions have no ID or
// owner yet; the caller persists them.
type Result struct {
	Accepted []model.Question
	Skipped  int
}

// ParseImport validates an import document.
//
// A record is accepted when question, link and topic are non-empty strings
// after trimming and link is an absolute URL. It must also not appear in
// existingLinks or earlier in the same document. Defaults: difficulty Medium,
// source nil, createdAt now, lastRevised nil.
//
// The returned error is always an apperror.ErrMalformed; record problems only
// show up in Result.Skipped.
func ParseImport(raw []byte, existingLinks []string, now time.Time) (Result, error) {
	elements, err := splitDocument(raw)
	if err != nil {
		return Result{}, err
	}

	seen := make(map[string]struct{}, len(existingLinks)+len(elements))
	for _, link := range existingLinks {
		seen[link] = struct{}{}
	}

	res := Result{Accepted: make([]model.Question, 0, len(elements))}
	for _, elem := range elements {
		q, ok := parseRecord(elem, now)
		if !ok {
			res.Skipped++
			continue
		}
		if _, dup := seen[q.Link]; dup {
			res.Skipped++
			continue
		}
		seen[q.Link] = struct{}{}
		res.Accepted = append(res.Accepted, q)
	}
	return res, nil
}

// splitDocument returns the raw records of an array document, or a single
// object document as a one-element list.
func splitDocument(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apperror.Malformed("document is empty")
	}
	if !json.Valid(trimmed) {
		return nil, apperror.Malformed("document is not valid JSON")
	}

	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, apperror.Malformed(err.Error())
		}
		return elements, nil
	case '{':
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	default:
		return nil, apperror.Malformed("expected a list of questions or a single question object")
	}
}

// parseRecord validates one element. Fields of the wrong JSON type are treated
// as absent, so {"question": 42} is skipped like a missing question.
func parseRecord(elem json.RawMessage, now time.Time) (model.Question, bool) {
	var fields map[string]any
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return model.Question{}, false
	}

	question := strings.TrimSpace(stringField(fields, "question"))
	link := strings.TrimSpace(stringField(fields, "link"))
	topic := strings.TrimSpace(stringField(fields, "topic"))
	if question == "" || link == "" || topic == "" {
		return model.Question{}, false
	}
	if !model.ValidLink(link) {
		return model.Question{}, false
	}

	q := model.Question{
		Question:   question,
		Link:       link,
		Topic:      topic,
		Difficulty: string(model.ResolveDifficulty(stringField(fields, "difficulty"))),
		CreatedAt:  now,
	}

	if source := strings.TrimSpace(stringField(fields, "source")); source != "" {
		q.Source = &source
	}
	if t, ok := timeField(fields, "createdAt"); ok {
		q.CreatedAt = t
	}
	if t, ok := timeField(fields, "lastRevised"); ok {
		q.LastRevised = &t
	}
	return q, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// timeField parses an RFC 3339 timestamp. Unparseable values count as absent.
func timeField(fields map[string]any, key string) (time.Time, bool) {
	s := strings.TrimSpace(stringField(fields, key))
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package homework

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/eliseohh/reviewbot/internal/failure"
)

// Homework is one reviewed submission.
type Homework struct {
	Name            string
	Status          string
	LessonName      string
	ReviewerComment string
	DateUpdated     string
}

// CheckResponse validates the shape of an API answer and returns its
// homework records, most recent first. An empty list is not an error.
//
// Checks run in a fixed order: empty body, non-object body, missing
// "homeworks", non-array "homeworks", non-object element.
func CheckResponse(resp gjson.Result) ([]Homework, error) {
	const op = "check response"

	if strings.TrimSpace(resp.Raw) == "" {
		return nil, failure.New(failure.EmptyResponse, op, "API response is empty")
	}
	if !resp.IsObject() {
		return nil, failure.New(failure.TypeMismatch, op, "expected a JSON object, got %s", typeName(resp))
	}
	list := resp.Get("homeworks")
	if !list.Exists() {
		return nil, failure.New(failure.MissingKey, op, "key %q is missing from the API response", "homeworks")
	}
	if !list.IsArray() {
		return nil, failure.New(failure.TypeMismatch, op, "%q is not a list, got %s", "homeworks", typeName(list))
	}

	items := list.Array()
	out := make([]Homework, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, failure.New(failure.TypeMismatch, op, "homeworks[%d] is not an object, got %s", i, typeName(item))
		}
		out = append(out, Homework{
			Name:            item.Get("homework_name").String(),
			Status:          item.Get("status").String(),
			LessonName:      item.Get("lesson_name").String(),
			ReviewerComment: item.Get("reviewer_comment").String(),
			DateUpdated:     item.Get("date_updated").String(),
		})
	}
	return out, nil
}

// CurrentDate returns the server's current_date, which becomes the
// lower bound of the next poll.
func CurrentDate(resp gjson.Result) (int64, bool) {
	v := resp.Get("current_date")
	if v.Type != gjson.Number {
		return 0, false
	}
	return v.Int(), true
}

func typeName(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	}
	switch r.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "bool"
	default:
		return "null"
	}
}

package service

import (
	"errors"
	"net/http"

	"github.com/jengzang/simplegis/internal/models"
)

// Assemble packages an aggregation outcome into the HTTP status and payload.
// Any failure discards the elements built so far.
func Assemble(res Aggregation, err error) (int, interface{}) {
	switch {
	case err == nil:
		elements := res.Elements
		if elements == nil {
			elements = []models.Element{}
		}
		var notice *string
		if res.Notice != "" {
			n := res.Notice
			notice = &n
		}
		return http.StatusOK, models.QueryResponse{Elements: elements, Error: notice}
	case errors.Is(err, ErrEmptyQuery):
		return http.StatusBadRequest, models.ErrorResponse{Error: ErrEmptyQuery.Error()}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: FailureMessage(err)}
}

// FailureMessage renders err as "<category>: <message>"
func FailureMessage(err error) string {
	return Category(err) + ": " + err.Error()
}

package service

import (
	"errors"

	"github.com/jengzang/simplegis/internal/database"
)

// Sentinel errors of the query pipeline
var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidIntensity  = errors.New("invalid intensity")
)

// Failure categories reported to clients
const (
	CategorySource = "SourceError"
	CategoryServer = "ServerError"
)

// Category names the failure class of err
func Category(err error) string {
	var se *database.SourceError
	if errors.As(err, &se) {
		return CategorySource
	}
	return CategoryServer
}

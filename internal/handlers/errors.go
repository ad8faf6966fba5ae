package handlers

import (
	"errors"
	"net/http"

	"raffle/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const unexpectedErrorMessage = "Unexpected error occurred"

var errorStatuses = []struct {
	err    error
	status int
}{
	{models.ErrDrawNotFound, http.StatusNotFound},
	{models.ErrDrawAlreadyClosed, http.StatusConflict},
	{models.ErrNoMembers, http.StatusBadRequest},
	{models.ErrDrawAlreadyExists, http.StatusConflict},
	{models.ErrNoClosedDraws, http.StatusNotFound},
	{models.ErrNoMembersProvided, http.StatusBadRequest},
	{models.ErrDuplicateMember, http.StatusBadRequest},
	{models.ErrInvalidInput, http.StatusBadRequest},
	{models.ErrEmptyInput, http.StatusBadRequest},
}

// StatusFor maps a service error to its HTTP status. Unclassified errors
// map to 500.
func StatusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// ErrorMiddleware writes the last error a handler recorded with c.Error as
// a JSON {"error": ...} response. Unclassified errors are logged and their
// detail is not sent to the client.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		status := StatusFor(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			message = unexpectedErrorMessage
		}
		c.JSON(status, gin.H{"error": message})
	}
}

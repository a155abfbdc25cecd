package api

import (
	"errors"
	"net/http"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fail writes err as JSON with the status of its error class. Internal
// errors are attached to the context for the request logger and hidden
// from the client.
func fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"error": apperr.Message(err)}
	var v *apperr.Validation
	if errors.As(err, &v) && len(v.Problems) > 0 {
		body["details"] = v.Problems
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// badInput answers a request body that could not be bound.
func badInput(c *gin.Context, err error) {
	body := gin.H{"error": "invalid input"}
	if details := apperr.FormatValidationErrors(err); len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// bind decodes the JSON body into dst and writes the 400 itself on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badInput(c, err)
		return false
	}
	return true
}

// paramID parses a path parameter holding an object id.
func paramID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := service.ParseID(c.Param(name))
	if err != nil {
		fail(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

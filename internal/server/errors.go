package server

import (
	"errors"

	apierrors "github.com/Aidin1998/tradealerts/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
)

// writeError aborts the request with an RFC 7807 problem response
func writeError(c *gin.Context, err error) {
	p := apierrors.From(err, c.Request.URL.Path)
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		p.WithTraceID(sc.TraceID().String())
	}
	c.Header("Content-Type", apierrors.ContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

func badRequest(c *gin.Context, detail string) {
	writeError(c, apierrors.NewValidationError(detail, c.Request.URL.Path))
}

// invalidBody reports a binding failure, listing each field the validator rejected
func invalidBody(c *gin.Context, err error) {
	p := apierrors.NewValidationError("invalid request body", c.Request.URL.Path)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		p.Detail = err.Error()
	}
	for _, fe := range verrs {
		p.WithField(fe.Field(), "failed "+fe.Tag()+" check")
	}
	writeError(c, p)
}

func notFound(c *gin.Context) {
	writeError(c, apierrors.NewNotFoundError("no route for "+c.Request.Method+" "+c.Request.URL.Path, c.Request.URL.Path))
}

func unavailable(c *gin.Context, err error) {
	writeError(c, apierrors.NewServiceUnavailableError(err.Error(), c.Request.URL.Path))
}

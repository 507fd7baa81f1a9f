package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	hcuuid "github.com/hashicorp/go-uuid"

	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/lifecycle"
	liblog "github.com/nabbar/abel/logger"
)

// statusFor maps a lifecycle error code onto its HTTP status. Anything
// this switch doesn't recognise (a raw isolate/service/svcpool code that
// escaped lifecycle's wrapping, or a plain Go error) defaults to 500.
// renderErr flattens an error's full message chain for a response body;
// soft ErrorPayload entries carry the script's own message as a parent
// (e.g. the old instance's stop hook raising {status=500, error="boom"}).
func renderErr(err error) string {
	if ce := errors.Get(err); ce != nil {
		return strings.Join(ce.StringErrorSlice(), ": ")
	}
	return err.Error()
}

func statusFor(err errors.Error) int {
	switch {
	case err.IsCode(lifecycle.ErrorInvalidName):
		return http.StatusBadRequest
	case err.IsCode(lifecycle.ErrorNotFound):
		return http.StatusNotFound
	case err.IsCode(lifecycle.ErrorPathNotFound):
		return http.StatusNotFound
	case err.IsCode(lifecycle.ErrorExists):
		return http.StatusConflict
	case err.IsCode(lifecycle.ErrorRunning):
		return http.StatusConflict
	case err.IsCode(lifecycle.ErrorStopped):
		return http.StatusConflict
	case err.IsCode(ErrorBadUpload), err.IsCode(ErrorMissingUpload), err.IsCode(ErrorBadRequest), err.IsCode(ErrorParamsEmpty):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError aborts the request with err rendered for the caller: a 5xx
// triggered by an unauthenticated caller is redacted to an incident uuid
// and a generic message, full detail only reaching logs; authenticated
// callers and non-5xx codes see the full message chain (for a script
// error, the script's own message and traceback ride the chain as
// parents).
func writeError(c *gin.Context, log liblog.Logger, err errors.Error) {
	status := statusFor(err)

	if status < http.StatusInternalServerError || isAuthenticated(c) {
		c.AbortWithStatusJSON(status, gin.H{"error": strings.Join(err.StringErrorSlice(), ": ")})
		return
	}

	// a dropped service reference is an internal condition an anonymous
	// caller has no business distinguishing from an absent service
	if err.IsCode(lifecycle.ErrorDropped) {
		c.AbortWithStatusJSON(status, gin.H{"error": "service not found"})
		return
	}

	id, _ := hcuuid.GenerateUUID()
	if log != nil {
		log.Error("request failed, incident "+id, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"incident": id, "error": "internal error"})
}

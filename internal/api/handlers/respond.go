package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
)

// respondError writes err with the status of its kind. Validation, not-found
// and partial failures keep their own message; the rest get the public one.
func respondError(c *gin.Context, err error) {
	typed := errs.As(err)
	if typed == nil {
		typed = errs.Wrap(errs.KindInternal, err, "unexpected error")
	}
	meta := errs.MetadataFor(typed.Kind())

	msg := meta.PublicMessage
	switch typed.Kind() {
	case errs.KindValidation, errs.KindNotFound, errs.KindPartial:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	body := gin.H{
		"error":     msg,
		"code":      string(typed.Kind()),
		"retryable": meta.Retryable,
	}
	if d := typed.Details(); d != nil {
		body["details"] = d
	}

	ev := log.Warn()
	if meta.HTTPStatus >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("code", string(typed.Kind())).Str("path", c.FullPath()).Msg("request failed")

	c.AbortWithStatusJSON(meta.HTTPStatus, body)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, errs.Wrap(errs.KindValidation, err, "invalid request"))
}

func stockIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, errs.Newf(errs.KindValidation, "invalid stock id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

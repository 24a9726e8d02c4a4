// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/logger"
)

// ErrorBody is the JSON body of every failed request
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError logs err and replies with the status its kind maps to
func respondError(c *gin.Context, log *logger.Logger, op string, err error) {
	status := apierr.HTTPStatus(err)
	body := ErrorBody{Error: err.Error()}

	var e *apierr.Error
	if errors.As(err, &e) {
		body.Error = e.Message
		if body.Error == "" {
			body.Error = e.Error()
		}
		body.Details = e.Details
		if body.Details == "" && e.Err != nil {
			body.Details = e.Err.Error()
		}
	}

	fields := []interface{}{"op", op, "status", status, "error", err}
	if id := c.GetString(requestIDKey); id != "" {
		fields = append(fields, "request_id", id)
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request failed", fields...)
	}

	c.AbortWithStatusJSON(status, body)
}

func respondOK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

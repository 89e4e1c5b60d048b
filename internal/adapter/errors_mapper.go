// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-field-sync/models"
)

// toResult turns a resty round trip into a [models.Result]. A transport error
// (connection refused, timeout, cancelled context) becomes a Failure with code
// 0; a non-2xx status becomes a Failure carrying that status; a 2xx body is
// decoded into T.
func toResult[T any](op string, resp *resty.Response, err error) models.Result[T] {
	if err != nil {
		return models.Fail[T](fmt.Sprintf("%s request: %v", op, err), 0)
	}

	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return models.Fail[T](fmt.Sprintf("%s: %s", op, failureMessage(resp)), code)
	}

	var value T
	if body := resp.Body(); len(body) > 0 {
		if err = json.Unmarshal(body, &value); err != nil {
			return models.Fail[T](fmt.Sprintf("decode %s response: %v", op, err), 0)
		}
	}
	return models.Ok(value)
}

// failureMessage extracts a human-readable reason from an error response.
// JSON bodies of the form {"error": "..."} or {"message": "..."} are
// unwrapped; anything else is used as plain text.
func failureMessage(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(body), &payload) == nil {
		switch {
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}

	if body == "" {
		return http.StatusText(resp.StatusCode())
	}
	return body
}

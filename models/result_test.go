// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describe(r Result[int]) string {
	return Match(r,
		func(v int) string { return "success" },
		func(f Failure[int]) string { return "failure:" + f.Message },
		func() string { return "loading" },
	)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		in   Result[int]
		want string
	}{
		{name: "success", in: Ok(1), want: "success"},
		{name: "failure", in: Fail[int]("boom", http.StatusBadGateway), want: "failure:boom"},
		{name: "loading", in: Pending[int](), want: "loading"},
		{name: "nil result", in: nil, want: "failure:empty result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.in))
		})
	}
}

func TestSplit(t *testing.T) {
	var r Result[int] = Ok(42)

	v, failure, ok := Split(r)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Zero(t, failure)

	v, failure, ok = Split(Fail[int]("gone", http.StatusUnauthorized))
	require.False(t, ok)
	assert.Zero(t, v)
	assert.True(t, failure.Unauthorized())

	var callErr *CallError
	require.True(t, errors.As(failure.Err(), &callErr))
	assert.Equal(t, "http 401: gone", callErr.Error())

	_, failure, ok = Split(Pending[int]())
	require.False(t, ok)
	assert.True(t, failure.Transport())
	assert.Equal(t, msgStillLoading, failure.Message)

	_, failure, ok = Split[int](nil)
	require.False(t, ok)
	assert.Equal(t, "empty result", failure.Message)
}

func TestResult_DistinctPerType(t *testing.T) {
	_, isIntResult := any(Success[string]{Value: "x"}).(Result[int])
	assert.False(t, isIntResult)

	_, isStringResult := any(Success[string]{Value: "x"}).(Result[string])
	assert.True(t, isStringResult)

	_, isIntResult = any(Failure[string]{}).(Result[int])
	assert.False(t, isIntResult)
	_, isIntResult = any(Loading[string]{}).(Result[int])
	assert.False(t, isIntResult)
}

func TestFailure_Classification(t *testing.T) {
	assert.True(t, Failure[int]{Code: http.StatusUnauthorized}.Unauthorized())
	assert.False(t, Failure[int]{Code: http.StatusForbidden}.Unauthorized())
	assert.True(t, Failure[int]{Message: "dial tcp: refused"}.Transport())
	assert.False(t, Failure[int]{Code: http.StatusInternalServerError}.Transport())

	assert.Equal(t, "dial tcp: refused", Failure[int]{Message: "dial tcp: refused"}.Err().Error())
}

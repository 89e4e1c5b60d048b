// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiryClaim is returned by TokenExpiry when the token carries no "exp"
// claim.
var ErrNoExpiryClaim = errors.New("token has no exp claim")

// TokenExpiry reads the "exp" claim of an access token without verifying its
// signature. The client cannot verify server-signed tokens; the value is only
// used to schedule a refresh when the login response omits expiresIn.
//
// Example usage:
//
//	exp, err := utils.TokenExpiry(resp.Token)
//	if err != nil {
//	    // treat the token as already expired
//	}
func TokenExpiry(tokenString string) (time.Time, error) {
	claims, err := parseUnverified(tokenString)
	if err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiryClaim
	}

	return exp.Time, nil
}

// ParseUserIDFromJWT extracts the numeric "sub" claim of an unverified token.
func ParseUserIDFromJWT(tokenString string) (int64, error) {
	claims, err := parseUnverified(tokenString)
	if err != nil {
		return 0, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("read sub claim: %w", err)
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sub claim %q: %w", sub, err)
	}
	return id, nil
}

func parseUnverified(tokenString string) (jwt.MapClaims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

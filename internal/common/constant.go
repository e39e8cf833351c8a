// Package common contains shared constants, sentinel errors and small
// helpers used across artfeed components.
package common

// SessionIDKey is the name of the cookie carrying the opaque session token.
const SessionIDKey = "session_id"

// AccessTokenHeaderName is the HTTP header carrying a bearer access token.
const AccessTokenHeaderName = "Authorization"

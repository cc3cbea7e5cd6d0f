// Package common contains shared constants and sentinel errors used across
// Metal Tracker components.
package common

// APIKeyHeaderName carries a long-lived API key on inbound requests.
const APIKeyHeaderName = "X-API-Key"

// AuthorizationHeaderName carries "Bearer <token>" session credentials.
const AuthorizationHeaderName = "Authorization"

// APIKeyPrefix starts every API key issued by the server.
const APIKeyPrefix = "mt_"

// MaxAPIKeysPerUser caps the number of live keys one account may hold.
const MaxAPIKeysPerUser = 5

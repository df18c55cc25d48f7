// Package common contains shared constants and sentinel errors used across
// Clarifio components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on outbound requests.
const AccessTokenHeaderName = "Authorization"

// NotesContextLimit bounds how many bytes of session notes are sent along
// with a clarification batch. Applied on both client and server.
const NotesContextLimit = 4000

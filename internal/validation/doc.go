// Package validation provides centralized input validation logic.
// This includes bucket name, object key, chunk size, retry budget, ACL, and
// key name validation.
//
// All user inputs are validated at the facade before any request is sent,
// so transfer internals can assume well-formed parameters.
package validation

// Package validator verifies OAuth 2.1 bearer tokens for a resource
// server. A Validator checks one token against the Policy of the
// authorization server it claims to come from: signature algorithm,
// signature, time window, issuer, audience and subject, in that order.
package validator

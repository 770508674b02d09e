// Package httpclient implements the retrying, rate-limited HTTP client used by
// every source integration.
//
// Each request takes a permit from a shared ratelimit.Limiter before every
// attempt. Responses are classified: 200 decodes, 404 is terminal, 429 and 403
// retry with Retry-After or exponential backoff until the policy is
// exhausted, and any other status is returned with up to 4 KiB of body.
// Transport and decode failures are terminal. Failures are *Error values that
// match their kind sentinel and a services marker under errors.Is.
package httpclient

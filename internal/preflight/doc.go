// Package preflight provides readiness checks for the directories and
// metadata APIs media-collector depends on.
//
// The CLI "media-collector status" command runs RunAll and renders each
// Result. Source checks are gated by the source's enabled flag; disabled
// sources report as passed with a "Disabled" detail.
package preflight

// Package anime defines the unified anime record the source collectors
// convert into, plus the queue names and storage helpers they share.
//
// Conversion is deliberately thin: each source fills what it knows and
// leaves the rest zero. Merging a second source into a record only fills
// fields that are still empty, except for collections (characters, staff,
// episodes, pictures) which the more detailed source replaces wholesale.
package anime

// Package textutil provides text helpers shared by the collectors: filename
// sanitizing for downloaded pictures, search-query normalization, display
// labels for upstream enum values, and token-based title similarity used to
// rank search results.
package textutil

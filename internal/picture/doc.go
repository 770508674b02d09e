// Package picture downloads images referenced by anime records and keeps a
// catalog of what is stored on disk.
//
// Each download is a FetchPictureTask on the pictures queue. Metadata is kept
// in the pictures collection keyed by source URL, so repeat requests for a
// completed picture whose file still matches its recorded hash are skipped.
package picture

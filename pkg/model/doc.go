// Package model defines the SWMS document consumed by renderers. The
// assembler lives in internal/model but returns the types re-exported here.
//
// A render request arrives as independent sections (project, activities,
// emergency, equipment, ppe). Each present section is checked against an
// embedded OpenAPI components document before decoding; a section of the
// wrong shape stops assembly with a MalformedSectionError naming the section
// and the expected shape. Absent fields receive textual defaults, activity
// IDs are made unique with index based fallbacks (`activity-3`,
// `activity-3-2`), and activities without precomputed scores are scored with
// a risk.Scorer. Sequence order is preserved; PPE identifiers are trimmed and
// de-duplicated in first-seen order. Free text is stripped of markup so
// renderers never see caller supplied HTML.
package model

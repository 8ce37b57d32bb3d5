// Package risk scores work activities for SWMS documents. A Scorer turns a
// task name, trade and optional hazard category into an initial Score using
// an explicit Tables configuration and an injected jitter source; Residual
// derives the post-control score; Classify maps any score onto a Level band.
//
// Scores produced by the Scorer are clamped to Tables.MinScore..MaxScore
// (3..16 with the default tables). Residual scores may fall below that range
// because they only need to stay >= 1 and show at least one point of
// reduction once a control measure exists.
package risk

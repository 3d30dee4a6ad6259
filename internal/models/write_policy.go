package models

// WritePolicy documents how a sync writes an entity's table. The mixed
// consistency models across sources are intentional: each source is
// independently re-synced, so the cheapest idempotent policy per shape wins.
type WritePolicy string

const (
	// WriteReplaceAll deletes the entity's entire current set before
	// inserting the freshly parsed set. No history is retained.
	WriteReplaceAll WritePolicy = "replace_all"
	// WriteAppendOnly inserts new rows and never mutates or deletes prior
	// ones; history accumulates across runs.
	WriteAppendOnly WritePolicy = "append_only"
	// WriteUpsertByKey inserts a new row or updates the mutable fields of an
	// existing row sharing the natural key.
	WriteUpsertByKey WritePolicy = "upsert_by_key"
)

func (SalesRow) Policy() WritePolicy           { return WriteReplaceAll }
func (VideoStatsSnapshot) Policy() WritePolicy { return WriteAppendOnly }
func (MessagePost) Policy() WritePolicy        { return WriteUpsertByKey }
func (UpcomingEvent) Policy() WritePolicy      { return WriteReplaceAll }
func (AppState) Policy() WritePolicy           { return WriteUpsertByKey }

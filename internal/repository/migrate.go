package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const jobsTable = "extract_job"

// Migrate creates the extract_job table and its indexes when missing.
// Timestamps are RFC 3339 text and JSON documents are text, so one DDL
// serves both dialects.
func (d *DB) Migrate(ctx context.Context) error {
	create := d.builder().CreateTable(jobsTable).IfNotExists().
		Column(entsql.Column("id").Type("text").Attr("PRIMARY KEY")).
		Column(entsql.Column("source_path").Type("text").Attr("NOT NULL")).
		Column(entsql.Column("content_hash").Type("text").Attr("NOT NULL")).
		Column(entsql.Column("status").Type("text").Attr("NOT NULL")).
		Column(entsql.Column("error_message").Type("text")).
		Column(entsql.Column("page_count").Type("integer").Attr("NOT NULL DEFAULT 0")).
		Column(entsql.Column("ocr_payload").Type("text")).
		Column(entsql.Column("llm_json").Type("text")).
		Column(entsql.Column("direct_json").Type("text")).
		Column(entsql.Column("record_json").Type("text")).
		Column(entsql.Column("issues_json").Type("text")).
		Column(entsql.Column("started_at").Type("text").Attr("NOT NULL")).
		Column(entsql.Column("finished_at").Type("text"))

	query, args := create.Query()
	if err := d.Driver.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("create %s: %w", jobsTable, err)
	}
	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS extract_job_content_hash_status ON extract_job (content_hash, status)",
		"CREATE INDEX IF NOT EXISTS extract_job_finished_at ON extract_job (finished_at)",
	} {
		if err := d.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	d.logger.Info("db.migrate.ok", "table", jobsTable)
	return nil
}

package store

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	itemsTable = schema.NewTable("items").
			AddPrimary(&schema.Column{Name: "id", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "kind", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "content", Type: field.TypeString, Size: 2048}).
			AddColumn(&schema.Column{Name: "difficulty_level", Type: field.TypeInt, Nullable: true}).
			AddColumn(&schema.Column{Name: "frequency_rank", Type: field.TypeInt, Nullable: true}).
			AddColumn(&schema.Column{Name: "created_at", Type: field.TypeString}).
			AddIndex("items_kind", false, []string{"kind"})

	itemAnalyticsTable = schema.NewTable("item_analytics").
				AddPrimary(&schema.Column{Name: "item_id", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "mastery_score", Type: field.TypeInt, Default: 0}).
				AddColumn(&schema.Column{Name: "last_reviewed_at", Type: field.TypeString, Nullable: true})

	sessionsTable = schema.NewTable("sessions").
			AddPrimary(&schema.Column{Name: "id", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "status", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "question_ids", Type: field.TypeString, Size: 8192}).
			AddColumn(&schema.Column{Name: "difficulty_level", Type: field.TypeFloat64}).
			AddColumn(&schema.Column{Name: "created_at", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "started_at", Type: field.TypeString, Nullable: true}).
			AddColumn(&schema.Column{Name: "expires_at", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "completed_at", Type: field.TypeString, Nullable: true}).
			AddColumn(&schema.Column{Name: "updated_at", Type: field.TypeString}).
			AddIndex("sessions_status_expires_at", false, []string{"status", "expires_at"})

	questionsTable = schema.NewTable("questions").
			AddPrimary(&schema.Column{Name: "id", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "session_id", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "question_type", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "difficulty_level", Type: field.TypeInt}).
			AddColumn(&schema.Column{Name: "body", Type: field.TypeString, Size: 65536}).
			AddColumn(&schema.Column{Name: "created_at", Type: field.TypeString}).
			AddIndex("questions_session_id", false, []string{"session_id"}).
			AddIndex("questions_created_at", false, []string{"created_at"})

	answersTable = schema.NewTable("answers").
			AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true}).
			AddColumn(&schema.Column{Name: "session_id", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "question_id", Type: field.TypeString}).
			AddColumn(&schema.Column{Name: "user_answer", Type: field.TypeString, Size: 65536}).
			AddColumn(&schema.Column{Name: "is_correct", Type: field.TypeBool}).
			AddColumn(&schema.Column{Name: "points", Type: field.TypeInt}).
			AddColumn(&schema.Column{Name: "time_taken_seconds", Type: field.TypeFloat64}).
			AddColumn(&schema.Column{Name: "answered_at", Type: field.TypeString}).
			AddIndex("answers_session_id_question_id", true, []string{"session_id", "question_id"})

	sessionResultsTable = schema.NewTable("session_results").
				AddPrimary(&schema.Column{Name: "session_id", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "total_questions", Type: field.TypeInt}).
				AddColumn(&schema.Column{Name: "answered", Type: field.TypeInt}).
				AddColumn(&schema.Column{Name: "correct", Type: field.TypeInt}).
				AddColumn(&schema.Column{Name: "score", Type: field.TypeInt}).
				AddColumn(&schema.Column{Name: "difficulty_level", Type: field.TypeFloat64}).
				AddColumn(&schema.Column{Name: "completed_at", Type: field.TypeString})

	llmRequestEventsTable = schema.NewTable("llm_request_events").
				AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true}).
				AddColumn(&schema.Column{Name: "provider", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "model", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "purpose", Type: field.TypeString}).
				AddColumn(&schema.Column{Name: "input_tokens", Type: field.TypeInt, Default: 0}).
				AddColumn(&schema.Column{Name: "output_tokens", Type: field.TypeInt, Default: 0}).
				AddColumn(&schema.Column{Name: "latency_ms", Type: field.TypeInt64}).
				AddColumn(&schema.Column{Name: "success", Type: field.TypeBool}).
				AddColumn(&schema.Column{Name: "error_message", Type: field.TypeString, Nullable: true}).
				AddColumn(&schema.Column{Name: "request_body", Type: field.TypeString, Size: 65536, Nullable: true}).
				AddColumn(&schema.Column{Name: "response_body", Type: field.TypeString, Size: 65536, Nullable: true}).
				AddColumn(&schema.Column{Name: "cost_usd", Type: field.TypeFloat64, Nullable: true}).
				AddColumn(&schema.Column{Name: "created_at", Type: field.TypeString})

	tables = []*schema.Table{
		itemsTable,
		itemAnalyticsTable,
		sessionsTable,
		questionsTable,
		answersTable,
		sessionResultsTable,
		llmRequestEventsTable,
	}
)

func init() {
	cascade := func(from *schema.Table, col string, to *schema.Table, refCol string) {
		c, _ := from.Column(col)
		rc, _ := to.Column(refCol)
		from.AddForeignKey(&schema.ForeignKey{
			Symbol:     from.Name + "_" + to.Name + "_" + col,
			Columns:    []*schema.Column{c},
			RefTable:   to,
			RefColumns: []*schema.Column{rc},
			OnDelete:   schema.Cascade,
		})
	}
	cascade(itemAnalyticsTable, "item_id", itemsTable, "id")
	cascade(questionsTable, "session_id", sessionsTable, "id")
	cascade(answersTable, "session_id", sessionsTable, "id")
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}

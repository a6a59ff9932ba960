package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const meetingColumns = `id, meeting_url, platform, start_time, end_time, duration_seconds, audio_file,
	transcript, summary_json, outputs_json, pdf_path, email_sent, email_recipient, created_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) SaveMeeting(ctx context.Context, input repository.SaveMeetingInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO meetings (meeting_url, platform, start_time, end_time, duration_seconds, audio_file,
			transcript, summary_json, outputs_json, pdf_path, email_recipient)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		input.MeetingURL, input.Platform, input.StartTime, input.EndTime, input.DurationSeconds, input.AudioFile,
		input.Transcript, nullableJSON(input.SummaryJSON), nullableJSON(input.OutputsJSON), input.PDFPath, input.EmailRecipient,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert meeting: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetMeeting(ctx context.Context, id int64) (*repository.Meeting, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	m, err := scanMeeting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) ListRecentMeetings(ctx context.Context, limit int) ([]repository.Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []repository.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) MarkEmailSent(ctx context.Context, id int64, recipient string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET email_sent = TRUE, email_recipient = $2 WHERE id = $1`,
		id, recipient)
	return err
}

func (r *PostgresRepository) UpdateMeetingOutputs(ctx context.Context, id int64, outputsJSON []byte) error {
	_, err := r.pool.Exec(ctx, `UPDATE meetings SET outputs_json = $2 WHERE id = $1`, id, nullableJSON(outputsJSON))
	if err != nil {
		return fmt.Errorf("update meeting outputs: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteMeeting(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) Shutdown() {
	r.pool.Close()
}

func scanMeeting(row pgx.Row) (*repository.Meeting, error) {
	var (
		m       repository.Meeting
		endTime *time.Time
	)
	err := row.Scan(&m.ID, &m.MeetingURL, &m.Platform, &m.StartTime, &endTime, &m.DurationSeconds, &m.AudioFile,
		&m.Transcript, &m.SummaryJSON, &m.OutputsJSON, &m.PDFPath, &m.EmailSent, &m.EmailRecipient, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.EndTime = endTime
	return &m, nil
}

// nullableJSON stores empty documents as SQL NULL rather than invalid JSONB.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jay060412/stepcode/internal/gapfiller"
	"github.com/jay060412/stepcode/internal/profile"
)

// ErrProfileNotFound is returned by Get and Update for unknown learner ids.
var ErrProfileNotFound = errors.New("store: profile not found")

// profileRepo implements profile.Repo over the profiles table.
type profileRepo struct {
	db  *sql.DB
	now func() time.Time
}

// ProfileRepo returns the profile repository backed by this store.
func (s *Store) ProfileRepo() profile.Repo {
	return &profileRepo{db: s.db, now: time.Now}
}

func (r *profileRepo) Get(ctx context.Context, id string) (profile.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, progress, completed_lesson_ids, missed_concepts,
		       last_track_id, role, is_banned, theme, settings, updated_at
		FROM profiles WHERE id = ?`, id)

	var (
		p                                  profile.Profile
		completedJSON, missedJSON, setJSON string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Progress, &completedJSON, &missedJSON,
		&p.LastTrackID, &p.Role, &p.IsBanned, &p.Theme, &setJSON, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(completedJSON), &p.CompletedLessonIDs); err != nil {
		return profile.Profile{}, fmt.Errorf("decode completed_lesson_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(missedJSON), &p.MissedConcepts); err != nil {
		return profile.Profile{}, fmt.Errorf("decode missed_concepts: %w", err)
	}
	if err := json.Unmarshal([]byte(setJSON), &p.Settings); err != nil {
		return profile.Profile{}, fmt.Errorf("decode settings: %w", err)
	}
	return p, nil
}

func (r *profileRepo) Insert(ctx context.Context, p profile.Profile) error {
	completedJSON, missedJSON, setJSON, err := encodeCollections(p.CompletedLessonIDs, p.MissedConcepts, p.Settings)
	if err != nil {
		return err
	}
	if p.Role == "" {
		p.Role = profile.RoleStudent
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = r.now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, progress, completed_lesson_ids,
			missed_concepts, last_track_id, role, is_banned, theme,
			settings, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Progress, completedJSON, missedJSON,
		p.LastTrackID, string(p.Role), p.IsBanned, p.Theme, setJSON, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Update is a read-modify-write partial upsert: unset fields keep their
// stored values.
func (r *profileRepo) Update(ctx context.Context, id string, u profile.Update) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	u.Apply(&p, r.now().UTC())

	completedJSON, missedJSON, setJSON, err := encodeCollections(p.CompletedLessonIDs, p.MissedConcepts, p.Settings)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET name = ?, progress = ?, completed_lesson_ids = ?,
			missed_concepts = ?, last_track_id = ?, role = ?, is_banned = ?,
			theme = ?, settings = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Progress, completedJSON, missedJSON, p.LastTrackID,
		string(p.Role), p.IsBanned, p.Theme, setJSON, p.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func encodeCollections(completed []string, missed []gapfiller.MissedConcept, settings map[string]string) (string, string, string, error) {
	if completed == nil {
		completed = []string{}
	}
	if missed == nil {
		missed = []gapfiller.MissedConcept{}
	}
	if settings == nil {
		settings = map[string]string{}
	}
	completedJSON, err := json.Marshal(completed)
	if err != nil {
		return "", "", "", fmt.Errorf("encode completed_lesson_ids: %w", err)
	}
	missedJSON, err := json.Marshal(missed)
	if err != nil {
		return "", "", "", fmt.Errorf("encode missed_concepts: %w", err)
	}
	setJSON, err := json.Marshal(settings)
	if err != nil {
		return "", "", "", fmt.Errorf("encode settings: %w", err)
	}
	return string(completedJSON), string(missedJSON), string(setJSON), nil
}

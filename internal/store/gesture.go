package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
)

// GestureRepository provides row-level access to the gesture tables.
type GestureRepository struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Gestures returns the gesture repository for this database.
func (s *SQLite) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db, log: s.log}
}

// List retrieves every gesture with its frames, ordered by name. Frame rows
// that cannot be decoded are skipped, as are gestures left without frames.
func (r *GestureRepository) List() ([]Gesture, error) {
	rows, err := r.db.Query(`SELECT id, name, updated_at FROM gestures ORDER BY name`)
	if err != nil {
		return nil, err
	}

	type row struct {
		id      string
		g       Gesture
		updated float64
	}
	var found []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.g.Name, &rw.updated); err != nil {
			rows.Close()
			return nil, err
		}
		rw.g.Timestamp = fromEpoch(rw.updated)
		found = append(found, rw)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	gestures := make([]Gesture, 0, len(found))
	for _, rw := range found {
		frames, err := r.frames(rw.id, rw.g.Name)
		if err != nil {
			return nil, fmt.Errorf("load frames of %s: %w", rw.g.Name, err)
		}
		if len(frames) == 0 {
			r.log.Warnw("skipping gesture with no usable frames", "name", rw.g.Name)
			continue
		}
		rw.g.Sequence = gesture.Sequence{Frames: frames, Cleaned: true}
		gestures = append(gestures, rw.g)
	}
	return gestures, nil
}

// Delete removes a gesture and its frames by name.
func (r *GestureRepository) Delete(name string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE name = ?`, name)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ReplaceAll makes the tables hold exactly the given gestures. Existing rows
// keep their id and creation time.
func (r *GestureRepository) ReplaceAll(gestures []Gesture) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing := make(map[string]string)
	rows, err := tx.Query(`SELECT id, name FROM gestures`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		existing[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, g := range gestures {
		updated := toEpoch(g.Timestamp)
		id, ok := existing[g.Name]
		if ok {
			delete(existing, g.Name)
			if _, err := tx.Exec(
				`UPDATE gestures SET frames = ?, updated_at = ? WHERE id = ?`,
				len(g.Sequence.Frames), updated, id,
			); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM gesture_frames WHERE gesture_id = ?`, id); err != nil {
				return err
			}
		} else {
			id = uuid.NewString()
			if _, err := tx.Exec(
				`INSERT INTO gestures (id, name, frames, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				id, g.Name, len(g.Sequence.Frames), updated, updated,
			); err != nil {
				return err
			}
		}

		for i, f := range g.Sequence.Frames {
			data, err := EncodeFrame(f)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				`INSERT INTO gesture_frames (gesture_id, position, data) VALUES (?, ?, ?)`,
				id, i, string(data),
			); err != nil {
				return err
			}
		}
	}

	for _, id := range existing {
		if _, err := tx.Exec(`DELETE FROM gestures WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *GestureRepository) frames(id, name string) ([]gesture.Frame, error) {
	rows, err := r.db.Query(
		`SELECT data FROM gesture_frames WHERE gesture_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []gesture.Frame
	for i := 0; rows.Next(); i++ {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		f, err := DecodeFrame(json.RawMessage(data))
		if err != nil {
			r.log.Warnw("skipping malformed frame", "name", name, "index", i, "error", err)
			continue
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

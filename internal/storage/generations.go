package storage

import (
	"fmt"
	"time"
)

// DefaultGenerationLimit applies when RecentGenerations gets a non-positive
// limit.
const DefaultGenerationLimit = 20

func (s *Store) SaveGeneration(g Generation) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	attempts := string(g.Attempts)
	if attempts == "" {
		attempts = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO generations (id, created_at, profile_name, profile_url, intent, source, content, attempts_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.CreatedAt.UTC().Format(timeLayout), g.ProfileName, g.ProfileURL,
		g.Intent, g.Source, g.Content, attempts,
	)
	if err != nil {
		return fmt.Errorf("saving generation %s: %w", g.ID, err)
	}
	return nil
}

// GetGeneration returns one generation or ErrNotFound.
func (s *Store) GetGeneration(id string) (Generation, error) {
	gens, err := s.queryGenerations(`WHERE id = ?`, id)
	if err != nil {
		return Generation{}, err
	}
	if len(gens) == 0 {
		return Generation{}, ErrNotFound
	}
	return gens[0], nil
}

// RecentGenerations returns up to limit generations, newest first.
func (s *Store) RecentGenerations(limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = DefaultGenerationLimit
	}
	return s.queryGenerations(`ORDER BY created_at DESC LIMIT ?`, limit)
}

func (s *Store) queryGenerations(tail string, args ...any) ([]Generation, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, profile_name, profile_url, intent, source, content, attempts_json
		FROM generations `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Generation{}
	for rows.Next() {
		var g Generation
		var createdAt, attempts string
		if err := rows.Scan(&g.ID, &createdAt, &g.ProfileName, &g.ProfileURL, &g.Intent, &g.Source, &g.Content, &attempts); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		g.Attempts = []byte(attempts)
		results = append(results, g)
	}
	return results, rows.Err()
}

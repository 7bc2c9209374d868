package bckt

import (
	"fmt"

	"bckt-go/internal/database/sqlc"
)

// GetHistory returns the most recent runs, ordered newest first.
func (s *Service) GetHistory(limit int) ([]*sqlc.Run, error) {
	runs, err := s.database.ListRecentRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

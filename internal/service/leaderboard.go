package service

import "time"

// LeaderboardRow mirrors the shape the original leaderboard exposes.
type LeaderboardRow struct {
	UserID                 string `json:"user_id"`
	Username               string `json:"username"`
	AnswersRevealed        int    `json:"answers_revealed"`
	RevealRequestsReceived int    `json:"reveal_requests_received"`
}

// MonthlyLeaderboard ranks users by distinct answers revealed within the
// month and distinct reveal requests received on their answers within the
// same month. Sorted by revealed desc, requests desc, then username for a
// stable order; users with both counts zero are omitted. Recomputed on
// every call, no incremental maintenance.
func (s *Service) MonthlyLeaderboard(month time.Time) ([]LeaderboardRow, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows := []LeaderboardRow{}
	err := s.db.Raw(`
		SELECT * FROM (
			SELECT
				u.id AS user_id,
				u.username AS username,
				COUNT(DISTINCT CASE WHEN a.revealed_at >= ? AND a.revealed_at < ? THEN a.id END) AS answers_revealed,
				COUNT(DISTINCT CASE WHEN rr.created_at >= ? AND rr.created_at < ? THEN rr.id END) AS reveal_requests_received
			FROM users u
			LEFT JOIN answers a ON a.user_id = u.id
			LEFT JOIN reveal_requests rr ON rr.answer_id = a.id
			GROUP BY u.id, u.username
		) lb
		WHERE lb.answers_revealed > 0 OR lb.reveal_requests_received > 0
		ORDER BY lb.answers_revealed DESC, lb.reveal_requests_received DESC, lb.username ASC`,
		start, end, start, end).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

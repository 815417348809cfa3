package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/timmy/rawgdex/internal/rawg"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan StringArray")
	}
	return json.Unmarshal(bytes, a)
}

// GameView is everything the detail screen shows for one game.
type GameView struct {
	Detail      rawg.GameDetail   `json:"detail"`
	Screenshots []rawg.Screenshot `json:"screenshots"`
	Movies      []rawg.Movie      `json:"movies"`
	FetchedAt   time.Time         `json:"fetched_at"`
	// Cached is set when the view came from the database.
	Cached bool `json:"cached"`
}

// GamePayload stores a GameView as JSON in one column.
type GamePayload GameView

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded view.
//   - error: non-nil if marshaling fails.
func (p GamePayload) Value() (driver.Value, error) {
	b, err := json.Marshal(GameView(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
//
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (p *GamePayload) Scan(value interface{}) error {
	if value == nil {
		*p = GamePayload{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan GamePayload")
	}
	var v GameView
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}
	*p = GamePayload(v)
	return nil
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unexpected column type")
	}
}

// GameRecord caches a GameView keyed by RAWG game id.
type GameRecord struct {
	ID        int         `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Slug      string      `gorm:"type:text;index:idx_game_records_slug" json:"slug"`
	Name      string      `gorm:"type:text" json:"name"`
	Genres    StringArray `gorm:"type:text" json:"genres"`
	Payload   GamePayload `gorm:"type:text;not null" json:"payload"`
	FetchedAt time.Time   `json:"fetched_at"`
	ExpiresAt time.Time   `gorm:"index:idx_game_records_expires_at" json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName returns the table used for cached game details.
func (GameRecord) TableName() string {
	return "game_records"
}

// NewGameRecord wraps view for storage, expiring ttl after it was fetched.
func NewGameRecord(view GameView, ttl time.Duration) *GameRecord {
	genres := make(StringArray, 0, len(view.Detail.Genres))
	for _, g := range view.Detail.Genres {
		genres = append(genres, g.Name)
	}
	view.Cached = false
	return &GameRecord{
		ID:        view.Detail.ID,
		Slug:      view.Detail.Slug,
		Name:      view.Detail.Name,
		Genres:    genres,
		Payload:   GamePayload(view),
		FetchedAt: view.FetchedAt,
		ExpiresAt: view.FetchedAt.Add(ttl),
	}
}

// View returns the cached view marked as coming from the cache.
func (r *GameRecord) View() GameView {
	v := GameView(r.Payload)
	v.Cached = true
	return v
}

// Expired reports whether the record is stale at now.
func (r *GameRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

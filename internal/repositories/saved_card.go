package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

// SavedCardRepository implements [models.SavedCardStore] on the saved_cards table.
type SavedCardRepository struct {
	db *sql.DB
}

// NewSavedCardRepository creates a new [SavedCardRepository] with the given database connection
func NewSavedCardRepository(db *sql.DB) *SavedCardRepository {
	return &SavedCardRepository{db: db}
}

// Add inserts card, setting CreatedAt.
//
// Returns [shared.ErrDuplicateEntry] when the user already saved this card; the stored row is left untouched.
func (r *SavedCardRepository) Add(ctx context.Context, card *models.SavedCard) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	createdAt := time.Now().UTC()
	query := `
		INSERT INTO saved_cards (user_id, card_id, card_name, card_set, created_at) VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, card.UserID, card.CardID, card.CardName, card.CardSet, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateEntry, card.CardID)
		}
		return storageError("insert saved card", err)
	}

	card.CreatedAt = createdAt
	return nil
}

// Remove deletes the user's row for cardID. Removing a card that is not saved is not an error.
func (r *SavedCardRepository) Remove(ctx context.Context, userID, cardID string) error {
	if err := requireIDs(userID, cardID); err != nil {
		return err
	}

	query := `DELETE FROM saved_cards WHERE user_id = ? AND card_id = ?`

	if _, err := r.db.ExecContext(ctx, query, userID, cardID); err != nil {
		return storageError("delete saved card", err)
	}

	return nil
}

// List returns the user's saved cards in insertion order, or an empty slice when there are none.
func (r *SavedCardRepository) List(ctx context.Context, userID string) ([]models.SavedCard, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	query := `
		SELECT user_id, card_id, card_name, card_set, created_at
		FROM saved_cards
		WHERE user_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageError("query saved cards", err)
	}
	defer rows.Close()

	cards := []models.SavedCard{}
	for rows.Next() {
		var card models.SavedCard
		if err := rows.Scan(&card.UserID, &card.CardID, &card.CardName, &card.CardSet, &card.CreatedAt); err != nil {
			return nil, storageError("scan saved card", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate saved cards", err)
	}

	return cards, nil
}

// Has reports whether the user has saved cardID.
func (r *SavedCardRepository) Has(ctx context.Context, userID, cardID string) (bool, error) {
	if err := requireIDs(userID, cardID); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (SELECT 1 FROM saved_cards WHERE user_id = ? AND card_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, cardID).Scan(&exists); err != nil {
		return false, storageError("check saved card", err)
	}

	return exists, nil
}

func requireIDs(userID, cardID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(cardID) == "" {
		return fmt.Errorf("%w: card id is required", shared.ErrInvalidInput)
	}
	return nil
}

var _ models.SavedCardStore = (*SavedCardRepository)(nil)

// Package repositories implements SQLite persistence for saved cards.
//
// [SavedCardRepository] implements [models.SavedCardStore]. Uniqueness of (user_id, card_id) is enforced by a
// UNIQUE constraint so Add never performs a read-then-write; a constraint violation is reported as
// [shared.ErrDuplicateEntry]. Every other driver failure is wrapped in [shared.ErrStorageUnavailable] so callers
// can tell a user-correctable conflict from a system error with errors.Is.
//
// Each call acquires a connection from the *sql.DB pool for the duration of one statement; no cursor or
// transaction outlives the call that opened it.
package repositories

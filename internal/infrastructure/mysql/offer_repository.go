package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cargo-dispatch/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLOfferRepository struct {
	db *sql.DB
}

func NewMySQLOfferRepository(db *sql.DB) *MySQLOfferRepository {
	return &MySQLOfferRepository{db: db}
}

func (r *MySQLOfferRepository) CreateRequest(ctx context.Context, request *domain.Request) error {
	query := `
        INSERT INTO requests (id, customer_id, origin, destination, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		request.ID, request.CustomerID, request.Origin, request.Destination,
		int(request.Status), request.CreatedAt, request.UpdatedAt)
	return err
}

func (r *MySQLOfferRepository) GetRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	query := `
        SELECT id, customer_id, origin, destination, status, created_at, updated_at
        FROM requests WHERE id = ?
    `

	var request domain.Request
	var status int

	err := r.db.QueryRowContext(ctx, query, requestID).Scan(
		&request.ID, &request.CustomerID, &request.Origin, &request.Destination,
		&status, &request.CreatedAt, &request.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}

	request.Status = domain.RequestStatus(status)
	return &request, nil
}

func (r *MySQLOfferRepository) CreateOffer(ctx context.Context, offer *domain.Offer) error {
	query := `
        INSERT INTO offers (id, request_id, driver_id, price, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		offer.ID, offer.RequestID, offer.DriverID, offer.Price,
		int(offer.Status), offer.CreatedAt, offer.UpdatedAt)
	return err
}

func (r *MySQLOfferRepository) GetOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	query := `
        SELECT id, request_id, driver_id, price, status, created_at, updated_at
        FROM offers WHERE id = ?
    `

	var offer domain.Offer
	var status int

	err := r.db.QueryRowContext(ctx, query, offerID).Scan(
		&offer.ID, &offer.RequestID, &offer.DriverID, &offer.Price,
		&status, &offer.CreatedAt, &offer.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, err
	}

	offer.Status = domain.OfferStatus(status)
	return &offer, nil
}

// AcceptOffer makes the named offer the authoritative one for the request:
// it transitions to accepted, sibling open offers transition to rejected and
// the request is marked matched, all in one transaction.
func (r *MySQLOfferRepository) AcceptOffer(ctx context.Context, requestID, offerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	result, err := tx.ExecContext(ctx,
		`UPDATE offers SET status = ?, updated_at = ? WHERE id = ? AND request_id = ? AND status = ?`,
		int(domain.OfferAccepted), now, offerID, requestID, int(domain.OfferOpen))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrOfferNotOpen
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE offers SET status = ?, updated_at = ? WHERE request_id = ? AND id <> ? AND status = ?`,
		int(domain.OfferRejected), now, requestID, offerID, int(domain.OfferOpen)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ?`,
		int(domain.RequestMatched), now, requestID); err != nil {
		return err
	}

	return tx.Commit()
}

// AcceptedOfferForDriver returns the snapshot the polling endpoint serves, or
// nil when no offer of the driver's is currently accepted.
func (r *MySQLOfferRepository) AcceptedOfferForDriver(ctx context.Context, driverID string) (*domain.AcceptedOffer, error) {
	query := `
        SELECT o.id, o.request_id, r.origin, r.destination, o.price
        FROM offers o
        JOIN requests r ON r.id = o.request_id
        WHERE o.driver_id = ? AND o.status = ?
        ORDER BY o.updated_at DESC
        LIMIT 1
    `

	var snapshot domain.AcceptedOffer
	err := r.db.QueryRowContext(ctx, query, driverID, int(domain.OfferAccepted)).Scan(
		&snapshot.OfferID, &snapshot.RequestID, &snapshot.Origin,
		&snapshot.Destination, &snapshot.Price)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &snapshot, nil
}

func (r *MySQLOfferRepository) ExpireOffersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE offers SET status = ?, updated_at = ? WHERE status = ? AND created_at < ?`,
		int(domain.OfferExpired), time.Now(), int(domain.OfferOpen), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// The WHERE clause skips rewriting identical rows so an unchanged rerun
// reports zero affected rows.
const upsertOrder = `-- name: UpsertOrder :exec
INSERT INTO stg.orders (order_id, customer_id, order_ts, amount, status, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (order_id) DO UPDATE SET
    customer_id = EXCLUDED.customer_id,
    order_ts    = EXCLUDED.order_ts,
    amount      = EXCLUDED.amount,
    status      = EXCLUDED.status,
    updated_at  = now()
WHERE (stg.orders.customer_id, stg.orders.order_ts, stg.orders.amount, stg.orders.status)
    IS DISTINCT FROM
      (EXCLUDED.customer_id, EXCLUDED.order_ts, EXCLUDED.amount, EXCLUDED.status)
`

type UpsertOrderParams struct {
	OrderID    string
	CustomerID string
	OrderTs    pgtype.Timestamptz
	Amount     pgtype.Numeric
	Status     pgtype.Text
}

// UpsertOrders sends one upsert per order in a single batch. Returns the
// number of rows inserted or changed.
func (q *Queries) UpsertOrders(ctx context.Context, arg []UpsertOrderParams) (int64, error) {
	b := &pgx.Batch{}
	for _, o := range arg {
		b.Queue(upsertOrder, o.OrderID, o.CustomerID, o.OrderTs, o.Amount, o.Status)
	}
	return q.execBatch(ctx, b)
}

const getOrder = `-- name: GetOrder :one
SELECT order_id, customer_id, order_ts, amount, status, updated_at
FROM stg.orders
WHERE order_id = $1
`

type StgOrder struct {
	OrderID    string
	CustomerID string
	OrderTs    pgtype.Timestamptz
	Amount     pgtype.Numeric
	Status     pgtype.Text
	UpdatedAt  pgtype.Timestamptz
}

func (q *Queries) GetOrder(ctx context.Context, orderID string) (StgOrder, error) {
	row := q.db.QueryRow(ctx, getOrder, orderID)
	var i StgOrder
	err := row.Scan(
		&i.OrderID,
		&i.CustomerID,
		&i.OrderTs,
		&i.Amount,
		&i.Status,
		&i.UpdatedAt,
	)
	return i, err
}

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM stg.orders
`

func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders)
	var count int64
	err := row.Scan(&count)
	return count, err
}

package journal

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds recorded by the bot. The journal is append-only audit; it is
// never read back at startup.
const (
	KindBuyPlaced  = "buy_placed"
	KindSellPlaced = "sell_placed"
	KindCancel     = "cancel"
	KindBuyFill    = "buy_fill"
	KindSellFill   = "sell_fill"
	KindShortOpen  = "short_open"
	KindShortClose = "short_close"
	KindSlotReset  = "slot_reset"
)

type Event struct {
	Time    time.Time
	Kind    string
	Slot    int
	Price   float64
	Qty     float64
	OrderID string
	Detail  string
}

// Journal appends order lifecycle events to a local sqlite file. A nil
// *Journal is valid and drops everything, so callers never branch on
// whether journaling is enabled.
type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS order_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		kind TEXT NOT NULL,
		slot INTEGER NOT NULL,
		price REAL NOT NULL,
		qty REAL NOT NULL,
		order_id TEXT NOT NULL,
		detail TEXT NOT NULL
	)`)
	return err
}

func (j *Journal) Append(ctx context.Context, ev Event) error {
	if j == nil {
		return nil
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO order_events (ts, kind, slot, price, qty, order_id, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.Time.UTC().Format(time.RFC3339Nano), ev.Kind, ev.Slot, ev.Price, ev.Qty, ev.OrderID, ev.Detail)
	return err
}

// Count returns the number of journaled events of one kind, or all kinds
// when kind is empty.
func (j *Journal) Count(ctx context.Context, kind string) (int, error) {
	if j == nil {
		return 0, nil
	}
	var n int
	var err error
	if kind == "" {
		err = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_events`).Scan(&n)
	} else {
		err = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_events WHERE kind = ?`, kind).Scan(&n)
	}
	return n, err
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

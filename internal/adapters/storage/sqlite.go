package storage

// sqlite.go: estado del trader y histórico en un solo archivo.
//
// Tablas:
//   - `current_coin_history`: una fila por cambio de moneda actual; la última es la vigente.
//   - `pairs`: umbral por par ordenado (from, to). Lo mantiene el motor de ratios.
//   - `trades`: un registro por salto origin -> bridge -> destination.
//   - `scout_history`: cada par evaluado en cada ciclo. Se poda cada hora.
//   - `coin_value`: snapshot periódico de cada posición valorada en bridge.
//
// Los timestamps se guardan en unix millis (UTC).

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS current_coin_history (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT    NOT NULL,
    at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pairs (
    from_coin TEXT NOT NULL,
    to_coin   TEXT NOT NULL,
    ratio     REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (from_coin, to_coin)
);

CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    origin      TEXT    NOT NULL,
    destination TEXT    NOT NULL,
    bridge      TEXT    NOT NULL,
    origin_qty  REAL    NOT NULL DEFAULT 0,
    bridge_qty  REAL    NOT NULL DEFAULT 0,
    dest_qty    REAL    NOT NULL DEFAULT 0,
    price       REAL    NOT NULL DEFAULT 0,
    status      TEXT    NOT NULL,
    at          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scout_history (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    from_coin          TEXT    NOT NULL,
    to_coin            TEXT    NOT NULL,
    target_ratio       REAL    NOT NULL,
    current_coin_price REAL    NOT NULL,
    other_coin_price   REAL    NOT NULL,
    at                 INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS coin_value (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol       TEXT    NOT NULL,
    balance      REAL    NOT NULL,
    price        REAL    NOT NULL,
    bridge_value REAL    NOT NULL,
    at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_at       ON trades(at DESC);
CREATE INDEX IF NOT EXISTS idx_scout_at        ON scout_history(at);
CREATE INDEX IF NOT EXISTS idx_coin_value_sym  ON coin_value(symbol, at);
CREATE INDEX IF NOT EXISTS idx_pairs_to        ON pairs(to_coin);
`

const retentionCoinValues = 30 * 24 * time.Hour // snapshots de valor: 30 días

// SQLiteStorage implementa StateStore, PairStorage e HistoryStorage usando
// SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB

	mu      sync.Mutex
	current domain.Coin // cache del puntero, "" = sin moneda actual
}

var (
	_ ports.StateStore     = (*SQLiteStorage)(nil)
	_ ports.PairStorage    = (*SQLiteStorage)(nil)
	_ ports.HistoryStorage = (*SQLiteStorage)(nil)
)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la moneda actual.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	if err := s.warmCurrent(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: %w", err)
	}
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- StateStore ---

// GetCurrentCoin devuelve la última moneda fijada.
func (s *SQLiteStorage) GetCurrentCoin(_ context.Context) (domain.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		return "", domain.ErrNoCurrentCoin
	}
	return s.current, nil
}

// SetCurrentCoin añade una fila al histórico. Gana la última escritura.
func (s *SQLiteStorage) SetCurrentCoin(ctx context.Context, coin domain.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO current_coin_history (symbol, at) VALUES (?, ?)`,
		string(coin), toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("storage.SetCurrentCoin: %w", err)
	}
	s.current = coin
	return nil
}

// GetCurrentCoinHistory devuelve los cambios de moneda actual desde since,
// del más antiguo al más reciente.
func (s *SQLiteStorage) GetCurrentCoinHistory(ctx context.Context, since time.Time) ([]domain.CurrentCoinEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, at FROM current_coin_history WHERE at >= ? ORDER BY id`,
		toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCurrentCoinHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CurrentCoinEntry
	for rows.Next() {
		var symbol string
		var at int64
		if err := rows.Scan(&symbol, &at); err != nil {
			return nil, fmt.Errorf("storage.GetCurrentCoinHistory: scan row: %w", err)
		}
		out = append(out, domain.CurrentCoinEntry{Coin: domain.Coin(symbol), At: fromMillis(at)})
	}
	return out, rows.Err()
}

// --- PairStorage ---

// EnsurePairs crea, sin tocar las existentes, una fila por par ordenado.
func (s *SQLiteStorage) EnsurePairs(ctx context.Context, coins []domain.Coin) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.EnsurePairs: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pairs (from_coin, to_coin, ratio) VALUES (?, ?, 0)
		 ON CONFLICT(from_coin, to_coin) DO NOTHING`,
	)
	if err != nil {
		return fmt.Errorf("storage.EnsurePairs: prepare: %w", err)
	}
	defer stmt.Close()

	for _, from := range coins {
		for _, to := range coins {
			if from == to {
				continue
			}
			if _, err := stmt.ExecContext(ctx, string(from), string(to)); err != nil {
				return fmt.Errorf("storage.EnsurePairs: insert %s->%s: %w", from, to, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.EnsurePairs: commit: %w", err)
	}
	return nil
}

// GetPairs devuelve los pares que salen de from, ordenados por destino.
func (s *SQLiteStorage) GetPairs(ctx context.Context, from domain.Coin) ([]domain.Pair, error) {
	return s.queryPairs(ctx, "storage.GetPairs",
		`SELECT from_coin, to_coin, ratio FROM pairs WHERE from_coin = ? ORDER BY to_coin`, string(from))
}

// GetPairsTo devuelve los pares que llegan a to, ordenados por origen.
func (s *SQLiteStorage) GetPairsTo(ctx context.Context, to domain.Coin) ([]domain.Pair, error) {
	return s.queryPairs(ctx, "storage.GetPairsTo",
		`SELECT from_coin, to_coin, ratio FROM pairs WHERE to_coin = ? ORDER BY from_coin`, string(to))
}

// SetPairRatio fija el umbral de un par existente.
func (s *SQLiteStorage) SetPairRatio(ctx context.Context, key domain.PairKey, ratio float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pairs SET ratio = ? WHERE from_coin = ? AND to_coin = ?`,
		ratio, string(key.From), string(key.To),
	)
	if err != nil {
		return fmt.Errorf("storage.SetPairRatio: %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.SetPairRatio: %s: %w", key, sql.ErrNoRows)
	}
	return nil
}

func (s *SQLiteStorage) queryPairs(ctx context.Context, op, query, arg string) ([]domain.Pair, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Pair
	for rows.Next() {
		var from, to string
		var p domain.Pair
		if err := rows.Scan(&from, &to, &p.Ratio); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		p.From, p.To = domain.Coin(from), domain.Coin(to)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- HistoryStorage ---

// SaveTrade inserta o actualiza un trade por ID.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, t domain.Trade) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, origin, destination, bridge, origin_qty, bridge_qty, dest_qty, price, status, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			origin_qty = excluded.origin_qty,
			bridge_qty = excluded.bridge_qty,
			dest_qty   = excluded.dest_qty,
			price      = excluded.price,
			status     = excluded.status`,
		t.ID, string(t.Origin), string(t.Destination), string(t.Bridge),
		t.OriginQty, t.BridgeQty, t.DestQty, t.Price, string(t.Status), toMillis(t.At),
	); err != nil {
		return fmt.Errorf("storage.SaveTrade: %s: %w", t.ID, err)
	}
	return nil
}

// GetTrades devuelve los trades desde since, del más reciente al más antiguo.
func (s *SQLiteStorage) GetTrades(ctx context.Context, since time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, origin, destination, bridge, origin_qty, bridge_qty, dest_qty, price, status, at
		FROM trades
		WHERE at >= ?
		ORDER BY at DESC, id`,
		toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var origin, dest, bridge, status string
		var at int64
		if err := rows.Scan(&t.ID, &origin, &dest, &bridge,
			&t.OriginQty, &t.BridgeQty, &t.DestQty, &t.Price, &status, &at,
		); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan row: %w", err)
		}
		t.Origin, t.Destination, t.Bridge = domain.Coin(origin), domain.Coin(dest), domain.Coin(bridge)
		t.Status = domain.TradeStatus(status)
		t.At = fromMillis(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveScoutRecords inserta los pares evaluados de un ciclo en una transacción.
func (s *SQLiteStorage) SaveScoutRecords(ctx context.Context, records []domain.ScoutRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveScoutRecords: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scout_history
			(from_coin, to_coin, target_ratio, current_coin_price, other_coin_price, at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveScoutRecords: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			string(r.Pair.From), string(r.Pair.To),
			r.TargetRatio, r.CurrentCoinPrice, r.OtherCoinPrice, toMillis(r.At),
		); err != nil {
			return fmt.Errorf("storage.SaveScoutRecords: insert %s: %w", r.Pair, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveScoutRecords: commit: %w", err)
	}
	return nil
}

// PruneScoutHistory borra el scout history anterior a before.
func (s *SQLiteStorage) PruneScoutHistory(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scout_history WHERE at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("storage.PruneScoutHistory: %w", err)
	}
	return res.RowsAffected()
}

// SaveCoinValues inserta un snapshot de valor por moneda.
func (s *SQLiteStorage) SaveCoinValues(ctx context.Context, values []domain.CoinValue) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCoinValues: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO coin_value (symbol, balance, price, bridge_value, at) VALUES (?, ?, ?, ?, ?)`,
			string(v.Coin), v.Balance, v.Price, v.BridgeValue, toMillis(v.At),
		); err != nil {
			return fmt.Errorf("storage.SaveCoinValues: insert %s: %w", v.Coin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCoinValues: commit: %w", err)
	}
	return nil
}

// GetCoinValues devuelve los snapshots de coin desde since, en orden temporal.
func (s *SQLiteStorage) GetCoinValues(ctx context.Context, coin domain.Coin, since time.Time) ([]domain.CoinValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, balance, price, bridge_value, at
		FROM coin_value
		WHERE symbol = ? AND at >= ?
		ORDER BY at, id`,
		string(coin), toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCoinValues: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CoinValue
	for rows.Next() {
		var v domain.CoinValue
		var symbol string
		var at int64
		if err := rows.Scan(&symbol, &v.Balance, &v.Price, &v.BridgeValue, &at); err != nil {
			return nil, fmt.Errorf("storage.GetCoinValues: scan row: %w", err)
		}
		v.Coin = domain.Coin(symbol)
		v.At = fromMillis(at)
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- helpers internos ---

// warmCurrent precarga el puntero desde la DB al arrancar.
func (s *SQLiteStorage) warmCurrent(ctx context.Context) error {
	var symbol string
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol FROM current_coin_history ORDER BY id DESC LIMIT 1`,
	).Scan(&symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load current coin: %w", err)
	}
	s.current = domain.Coin(symbol)
	return nil
}

// pruneOld elimina snapshots antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().Add(-retentionCoinValues)
	s.db.ExecContext(ctx, `DELETE FROM coin_value WHERE at < ?`, toMillis(cutoff))
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

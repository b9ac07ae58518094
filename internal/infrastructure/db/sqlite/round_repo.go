package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
)

const (
	upsertRound = `
INSERT INTO round (
    id, deadline, description, stage, treasury_size, request_id, fee,
    random_value, withdrawn, withdrawn_to, created_at, closed_at, settled_at,
    version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    stage = EXCLUDED.stage,
    treasury_size = EXCLUDED.treasury_size,
    request_id = EXCLUDED.request_id,
    fee = EXCLUDED.fee,
    random_value = EXCLUDED.random_value,
    withdrawn = EXCLUDED.withdrawn,
    withdrawn_to = EXCLUDED.withdrawn_to,
    closed_at = EXCLUDED.closed_at,
    settled_at = EXCLUDED.settled_at,
    version = EXCLUDED.version`

	insertEntry = `
INSERT INTO entry (round_id, idx, participant, token, amount)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(round_id, idx) DO NOTHING`

	upsertWinner = `
INSERT INTO winner (
    round_id, tier, participant, entry_index, item_id, delivered, delivery_err
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(round_id, tier) DO UPDATE SET
    item_id = EXCLUDED.item_id,
    delivered = EXCLUDED.delivered,
    delivery_err = EXCLUDED.delivery_err`

	upsertTreasury = `
INSERT INTO treasury (round_id, token, deposited, withdrawn)
VALUES (?, ?, ?, ?)
ON CONFLICT(round_id, token) DO UPDATE SET
    deposited = EXCLUDED.deposited,
    withdrawn = EXCLUDED.withdrawn`

	selectRoundColumns = `
SELECT id, deadline, description, stage, treasury_size, request_id, fee,
    random_value, withdrawn, withdrawn_to, created_at, closed_at, settled_at,
    version
FROM round`

	selectEntries = `
SELECT idx, participant, token, amount FROM entry
WHERE round_id = ? ORDER BY idx`

	selectWinners = `
SELECT tier, participant, entry_index, item_id, delivered, delivery_err
FROM winner WHERE round_id = ? ORDER BY tier`

	selectTreasury = `
SELECT token, deposited, withdrawn FROM treasury WHERE round_id = ?`

	selectRoundIds = `SELECT id FROM round ORDER BY id`
)

type roundRepository struct {
	db *sql.DB
}

func NewRoundRepository(config ...interface{}) (domain.RoundRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("cannot open round repository: invalid config, expected db at 0")
	}

	return &roundRepository{db}, nil
}

func (r *roundRepository) Close() {
	_ = r.db.Close()
}

func (r *roundRepository) AddOrUpdateRound(ctx context.Context, round domain.Round) error {
	txBody := func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, upsertRound,
			int64(round.Id), round.Deadline, round.Description, int64(round.Stage),
			int64(round.TreasurySize), round.RequestId, formatAmount(round.Fee),
			round.RandomValue, round.Withdrawn, round.WithdrawnTo, round.CreatedAt,
			round.ClosedAt, round.SettledAt, int64(round.Version),
		); err != nil {
			return fmt.Errorf("failed to upsert round: %w", err)
		}

		for _, entry := range round.Entries {
			if _, err := tx.ExecContext(
				ctx, insertEntry,
				int64(round.Id), int64(entry.Index), entry.Participant, entry.Token,
				formatAmount(entry.Amount),
			); err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}

		for _, w := range round.Winners {
			if _, err := tx.ExecContext(
				ctx, upsertWinner,
				int64(round.Id), int64(w.Tier), w.Participant, int64(w.EntryIndex),
				w.ItemId, w.Delivered, w.DeliveryErr,
			); err != nil {
				return fmt.Errorf("failed to upsert winner: %w", err)
			}
		}

		for token, deposited := range round.Deposits {
			if _, err := tx.ExecContext(
				ctx, upsertTreasury,
				int64(round.Id), token, formatAmount(deposited),
				formatAmount(round.Withdrawals[token]),
			); err != nil {
				return fmt.Errorf("failed to upsert treasury: %w", err)
			}
		}

		return nil
	}

	return execTx(ctx, r.db, txBody)
}

func (r *roundRepository) GetRoundWithId(ctx context.Context, id uint64) (*domain.Round, error) {
	round, err := r.getRound(ctx, selectRoundColumns+" WHERE id = ?", int64(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: round with id %d", domain.ErrRoundNotFound, id)
		}
		return nil, err
	}
	return round, nil
}

func (r *roundRepository) GetRoundWithRequestId(
	ctx context.Context, requestId string,
) (*domain.Round, error) {
	round, err := r.getRound(ctx, selectRoundColumns+" WHERE request_id = ?", requestId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf(
				"%w: round with request id %s", domain.ErrRoundNotFound, requestId,
			)
		}
		return nil, err
	}
	return round, nil
}

func (r *roundRepository) GetLatestRound(ctx context.Context) (*domain.Round, error) {
	round, err := r.getRound(ctx, selectRoundColumns+" ORDER BY id DESC LIMIT 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return round, nil
}

func (r *roundRepository) GetRoundIds(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, selectRoundIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uint64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (r *roundRepository) getRound(
	ctx context.Context, query string, args ...interface{},
) (*domain.Round, error) {
	var (
		round                            domain.Round
		id, stage, treasurySize, version int64
		fee                              string
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&id, &round.Deadline, &round.Description, &stage, &treasurySize,
		&round.RequestId, &fee, &round.RandomValue, &round.Withdrawn,
		&round.WithdrawnTo, &round.CreatedAt, &round.ClosedAt, &round.SettledAt,
		&version,
	); err != nil {
		return nil, err
	}

	round.Id = uint64(id)
	round.Stage = domain.RoundStage(stage)
	round.TreasurySize = uint64(treasurySize)
	round.Version = uint(version)
	feeAmount, err := parseAmount(fee)
	if err != nil {
		return nil, err
	}
	round.Fee = feeAmount

	if round.Entries, err = r.getEntries(ctx, id); err != nil {
		return nil, err
	}
	if round.Winners, err = r.getWinners(ctx, id); err != nil {
		return nil, err
	}
	if round.Deposits, round.Withdrawals, err = r.getTreasury(ctx, id); err != nil {
		return nil, err
	}

	return &round, nil
}

func (r *roundRepository) getEntries(ctx context.Context, roundId int64) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries, roundId)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.Entry, 0)
	for rows.Next() {
		var (
			idx    int64
			amount string
			entry  domain.Entry
		)
		if err := rows.Scan(&idx, &entry.Participant, &entry.Token, &amount); err != nil {
			return nil, err
		}
		entry.Index = uint64(idx)
		if entry.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *roundRepository) getWinners(ctx context.Context, roundId int64) ([]domain.Winner, error) {
	rows, err := r.db.QueryContext(ctx, selectWinners, roundId)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}
	defer rows.Close()

	winners := make([]domain.Winner, 0)
	for rows.Next() {
		var (
			tier, entryIndex int64
			w                domain.Winner
		)
		if err := rows.Scan(
			&tier, &w.Participant, &entryIndex, &w.ItemId, &w.Delivered, &w.DeliveryErr,
		); err != nil {
			return nil, err
		}
		w.Tier = domain.Tier(tier)
		w.EntryIndex = uint64(entryIndex)
		winners = append(winners, w)
	}
	return winners, rows.Err()
}

func (r *roundRepository) getTreasury(
	ctx context.Context, roundId int64,
) (map[string]uint64, map[string]uint64, error) {
	rows, err := r.db.QueryContext(ctx, selectTreasury, roundId)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get treasury: %w", err)
	}
	defer rows.Close()

	deposits := make(map[string]uint64)
	withdrawals := make(map[string]uint64)
	for rows.Next() {
		var token, deposited, withdrawn string
		if err := rows.Scan(&token, &deposited, &withdrawn); err != nil {
			return nil, nil, err
		}
		if deposits[token], err = parseAmount(deposited); err != nil {
			return nil, nil, err
		}
		sent, err := parseAmount(withdrawn)
		if err != nil {
			return nil, nil, err
		}
		if sent > 0 {
			withdrawals[token] = sent
		}
	}
	return deposits, withdrawals, rows.Err()
}

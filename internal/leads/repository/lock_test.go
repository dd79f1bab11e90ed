package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errStop = errors.New("stop")

// recordingTx answers the lead_id lookup and fails every later query, which is
// enough to observe the order in which rows are locked.
type recordingTx struct {
	pgx.Tx
	leadID  uuid.UUID
	missing bool
	queries []string
}

type scriptedRow struct {
	leadID uuid.UUID
	err    error
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*uuid.UUID)) = r.leadID
	return nil
}

func (tx *recordingTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	tx.queries = append(tx.queries, sql)
	if len(tx.queries) == 1 {
		if tx.missing {
			return scriptedRow{err: pgx.ErrNoRows}
		}
		return scriptedRow{leadID: tx.leadID}
	}
	return scriptedRow{err: errStop}
}

func TestLockDealTakesLeadLockFirst(t *testing.T) {
	tx := &recordingTx{leadID: uuid.New()}
	if _, _, err := lockDealTx(context.Background(), tx, uuid.New()); !errors.Is(err, errStop) {
		t.Fatalf("expected the scripted error, got %v", err)
	}
	if len(tx.queries) != 2 {
		t.Fatalf("expected two queries, got %d", len(tx.queries))
	}
	if strings.Contains(tx.queries[0], "FOR UPDATE") {
		t.Fatalf("the lead_id lookup must not lock the deal: %q", tx.queries[0])
	}
	if !strings.Contains(tx.queries[1], "FROM leads l") || !strings.Contains(tx.queries[1], "FOR UPDATE") {
		t.Fatalf("expected the lead to be locked second, got %q", tx.queries[1])
	}
}

func TestLockDealMissing(t *testing.T) {
	tx := &recordingTx{missing: true}
	if _, _, err := lockDealTx(context.Background(), tx, uuid.New()); !errors.Is(err, ErrDealNotFound) {
		t.Fatalf("expected ErrDealNotFound, got %v", err)
	}
	if len(tx.queries) != 1 {
		t.Fatalf("nothing must be locked for a missing deal, got %d queries", len(tx.queries))
	}
}

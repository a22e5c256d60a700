// README: DB-backed exclusivity tests for the assignment commit (skipped without a DSN).
package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mealdrop/internal/modules/delivery"
	"mealdrop/internal/types"
)

func TestCommitAssignmentExclusiveDB(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	seedOrderRow(t, db, "o_excl")

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		driverID := types.ID(fmt.Sprintf("d%d", i))
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			committed, err := store.CommitAssignment(ctx, "o_excl", did, &delivery.Delivery{
				ID:             types.ID("dl_" + string(did)),
				OrderID:        "o_excl",
				DriverID:       did,
				Status:         delivery.StatusAssigned,
				DeliveryFee:    types.USD(300),
				DriverEarnings: types.USD(240),
				CreatedAt:      time.Now(),
			})
			if err != nil {
				t.Errorf("commit: %v", err)
				return
			}
			results <- committed
		}(driverID)
	}

	wg.Wait()
	close(results)

	success := 0
	for committed := range results {
		if committed {
			success++
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 committed assignment, got %d", success)
	}

	o, err := store.GetOrder(ctx, "o_excl")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.DriverID == nil {
		t.Fatal("expected driver_id to be set")
	}
}

func TestCommitAssignmentBusyDriverDB(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	seedOrderRow(t, db, "o_busy_1")
	seedOrderRow(t, db, "o_busy_2")

	mk := func(deliveryID, orderID types.ID) *delivery.Delivery {
		return &delivery.Delivery{
			ID:             deliveryID,
			OrderID:        orderID,
			DriverID:       "d_busy",
			Status:         delivery.StatusAssigned,
			DeliveryFee:    types.USD(300),
			DriverEarnings: types.USD(240),
			CreatedAt:      time.Now(),
		}
	}

	committed, err := store.CommitAssignment(ctx, "o_busy_1", "d_busy", mk("dl_busy_1", "o_busy_1"))
	if err != nil || !committed {
		t.Fatalf("first commit = %v, %v", committed, err)
	}

	// Same driver, second order: the active-driver unique index refuses.
	committed, err = store.CommitAssignment(ctx, "o_busy_2", "d_busy", mk("dl_busy_2", "o_busy_2"))
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if committed {
		t.Fatal("driver with an active delivery was assigned again")
	}

	// The losing transaction must not leave the order half-bound.
	o, err := store.GetOrder(ctx, "o_busy_2")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.DriverID != nil {
		t.Fatalf("order o_busy_2 gained driver %s from a rolled-back commit", *o.DriverID)
	}
}

func seedOrderRow(t *testing.T, db *pgxpool.Pool, id types.ID) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO orders (
			id, order_number, customer_id, restaurant_id,
			subtotal, delivery_fee, tax, tip, total,
			status, status_version, payment_status,
			estimated_delivery_time, created_at
		) VALUES ($1, $2, 'c1', 'r1', 2460, 300, 197, 0, 2957,
		          'confirmed', 0, 'paid', NOW() + INTERVAL '45 minutes', NOW())`,
		string(id), "ORD-"+string(id),
	)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("MEALDROP_TEST_DSN")
	if dsn == "" {
		t.Skip("MEALDROP_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE deliveries, order_items, orders, customer_order_history"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return db
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

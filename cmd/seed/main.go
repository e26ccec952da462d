// seed is a one-shot tool that loads demo sales orders and default settings
// into a development database. Safe to re-run: every insert is an upsert.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"github.com/ablair264/splitfin/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding demo orders...")
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (external_id, order_number, customer_external_id, customer_name, total)
		VALUES
		    ('so-demo-001', 'SO-0001', 'cust-demo-1', 'Blue Door Trading Ltd',  542.40),
		    ('so-demo-002', 'SO-0002', 'cust-demo-1', 'Blue Door Trading Ltd', 1180.00),
		    ('so-demo-003', 'SO-0003', 'cust-demo-2', 'Harwood & Co',            89.99)
		ON CONFLICT (external_id) DO UPDATE
		  SET order_number = EXCLUDED.order_number,
		      customer_external_id = EXCLUDED.customer_external_id,
		      customer_name = EXCLUDED.customer_name,
		      total = EXCLUDED.total;
	`)
	if err != nil {
		log.Fatalf("Failed to seed orders: %v", err)
	}

	log.Println("Seeding default settings...")
	_, err = tx.Exec(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ('reminders_enabled', 'true'::jsonb)
		ON CONFLICT (key) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO customer_reminder_settings
		    (customer_external_id, enabled, days_before_due, days_after_due, max_reminders, cc_agent, custom_message)
		VALUES
		    ('cust-demo-1', TRUE, 3, 7, 3, TRUE,  ''),
		    ('cust-demo-2', TRUE, 3, 7, 3, FALSE, '')
		ON CONFLICT (customer_external_id) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed reminder settings: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed complete.")
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shs-health/booking-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, accepting_patients, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

// seedSchedules gives each doctor an active window on five random weekdays.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding schedules for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		skip := gofakeit.Number(0, 6)
		skip2 := (skip + 3) % 7
		for day := 0; day < 7; day++ {
			if day == skip || day == skip2 {
				continue
			}

			startHour := gofakeit.Number(8, 11)
			endHour := startHour + gofakeit.Number(3, 6)

			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_windows (id, doctor_id, day_of_week, start_minute, end_minute, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, true, now(), now())
			`, uuid.New(), doctorID, int16(day), int32(startHour*60), int32(endHour*60))
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		email := gofakeit.Email()
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), gofakeit.Name(), email)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

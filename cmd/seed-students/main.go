package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/database"
	"github.com/certiva/examportal-backend/internal/logger"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
	"github.com/certiva/examportal-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	taxonomyRepo := repository.NewTaxonomyRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)

	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	batchService := service.NewBatchService(batchRepo)
	taxonomyService := service.NewTaxonomyService(taxonomyRepo)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, log)

	fmt.Println("=== Seeding Demo Batch with 50 Students ===")

	batchName := "Demo Batch 2026"

	// Fast way to find an existing seed batch
	var batchID int
	err = pool.QueryRow(ctx, "SELECT id FROM batches WHERE name = $1", batchName).Scan(&batchID)
	if err != nil {
		if err != pgx.ErrNoRows {
			log.Fatal().Err(err).Msg("Failed to check existing batch")
		}

		fmt.Println("Demo batch not found. Creating prerequisites...")

		college, err := taxonomyService.CreateCollege(ctx, model.CreateCollegeRequest{
			Name: "Demo Institute of Technology",
			Code: "DIT",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create college")
		}

		subject, err := taxonomyService.CreateSubject(ctx, model.CreateSubjectRequest{
			Name: "Computer Science",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create subject")
		}

		plan, err := subscriptionService.CreatePlan(ctx, model.CreatePlanRequest{
			Name:         "Demo Annual Plan",
			PriceCents:   0,
			DurationDays: 365,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create plan")
		}

		autoSuspend := true
		batch, err := batchService.Create(ctx, model.CreateBatchRequest{
			Name:                                    batchName,
			Year:                                    2026,
			SubjectID:                               subject.ID,
			CollegeID:                               college.ID,
			PlanID:                                  plan.ID,
			MaxAttempts:                             3,
			MaxSecurityIncidents:                    5,
			EnableAutoSuspend:                       &autoSuspend,
			AdditionalSecurityIncidentsAfterRemoval: 3,
			AdditionalAttemptsAfterPayment:          1,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create batch")
		}
		batchID = batch.ID
		fmt.Printf("Created batch with ID: %d\n", batchID)
	} else {
		fmt.Printf("Found existing batch with ID: %d\n", batchID)
	}

	names := []string{
		"Aarav Sharma", "Bianca Torres", "Chen Wei", "Diego Fernandez", "Elena Petrova",
		"Farhan Malik", "Grace Okafor", "Hana Kobayashi", "Ivan Horvat", "Jasmine Patel",
		"Kofi Mensah", "Lena Fischer", "Mateo Rossi", "Nadia Rahman", "Omar Haddad",
		"Priya Nair", "Quentin Dubois", "Rosa Martinez", "Sami Al-Amin", "Tara Singh",
		"Umar Farouk", "Valentina Cruz", "Wan Ahmad", "Ximena Lopez", "Yusuf Demir",
		"Zara Khan", "Anton Novak", "Beatriz Silva", "Carlos Mendes", "Daria Ivanova",
		"Emil Johansson", "Fatima Zahra", "Gustavo Lima", "Hiba Nasser", "Igor Pavlov",
		"Julia Kowalska", "Karim Aziz", "Lucia Moreno", "Milan Jovanovic", "Nora Berg",
		"Oscar Nilsson", "Paulo Costa", "Rania Saleh", "Stefan Muller", "Tomas Vanek",
		"Usha Reddy", "Viktor Olsen", "Wendy Chang", "Yara Habib", "Zoltan Nagy",
	}

	successCount := 0
	for i := 0; i < 50; i++ {
		req := model.CreateStudentRequest{
			Name:       names[i],
			Email:      fmt.Sprintf("student%02d@example.edu", i+1),
			RollNumber: fmt.Sprintf("DIT26-%03d", i+1),
			Password:   "changeme123",
			BatchID:    batchID,
		}

		_, err := studentService.Create(ctx, req)
		if err != nil {
			fmt.Printf("Error creating student %s (%s): %v\n", req.Name, req.Email, err)
		} else {
			successCount++
			if (i+1)%10 == 0 {
				fmt.Printf("Created %d students...\n", i+1)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/50 students.\n", successCount)
}

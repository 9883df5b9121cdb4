package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/database"
	"github.com/stemsi/exstem-access/internal/logger"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
	"github.com/stemsi/exstem-access/internal/service"
)

func main() {
	var (
		codeCount int
		ttlHours  int
	)
	flag.IntVar(&codeCount, "codes", 10, "Number of access codes to issue")
	flag.IntVar(&ttlHours, "ttl", 0, "Code lifetime in hours (0 = never expires)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	tests := repository.NewTestRepository(pool)
	testService := service.NewTestService(repository.NewPostgresUnitOfWork(pool), tests, log)
	codeService := service.NewAccessCodeService(repository.NewAccessCodeRepository(pool), tests, cfg, log)

	fmt.Println("=== Seeding Demo Test ===")

	t, err := testService.Create(ctx, demoTest())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo test")
	}
	fmt.Printf("Created test %q with ID: %s\n", t.Title, t.ID)

	var ttl *int
	if ttlHours > 0 {
		ttl = &ttlHours
	}

	issued := 0
	for i := 0; i < codeCount; i++ {
		ac, err := codeService.Issue(ctx, t.ID, ttl)
		if err != nil {
			fmt.Printf("Error issuing code %d: %v\n", i+1, err)
			continue
		}
		issued++
		fmt.Println("  " + ac.Code)
	}

	fmt.Printf("\nSeed completed! Issued %d/%d codes.\n", issued, codeCount)
}

func demoTest() *model.CreateTestRequest {
	return &model.CreateTestRequest{
		Title:           "Networking Basics",
		Description:     "Short warm-up quiz on network fundamentals.",
		DurationMinutes: 15,
		Questions: []model.CreateQuestionRequest{
			{
				Kind:          string(model.QuestionKindMultipleChoice),
				Prompt:        "Which layer of the OSI model does a router operate on?",
				Options:       []string{"Physical", "Data Link", "Network", "Transport"},
				CorrectAnswer: "Network",
				Points:        2,
			},
			{
				Kind:          string(model.QuestionKindTrueFalse),
				Prompt:        "TCP guarantees in-order delivery.",
				CorrectAnswer: "true",
			},
			{
				Kind:          string(model.QuestionKindShortAnswer),
				Prompt:        "What port does HTTPS use by default?",
				CorrectAnswer: "443",
			},
			{
				Kind:          string(model.QuestionKindMultipleChoice),
				Prompt:        "Which of these is a private IPv4 range?",
				Options:       []string{"8.8.8.0/24", "192.168.0.0/16", "1.1.1.0/24"},
				CorrectAnswer: "192.168.0.0/16",
			},
		},
	}
}

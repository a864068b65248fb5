package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/inkwell-app/inkwell/internal/bridge"
	"github.com/inkwell-app/inkwell/internal/chat"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/httpapi/handlers"
	"github.com/inkwell-app/inkwell/internal/store/rabbitmq"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := chat.NewRepo(gdb)

	provider, err := handlers.StreamProviderFromConfig(cfg)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	// Events from async turns go over the redis relay so a connected UI
	// still sees them; without the relay they are validated and dropped.
	b := bridge.New()
	if cfg.EventRelay == "redis" {
		rds := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.Subscribe(bridge.NewRedisSink(rds, cfg.EventPrefix))
	}

	mgr := chat.NewManager(repo, provider, b, cfg.ChatContextWindowSize)

	concurrency := workerConcurrency()

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, concurrency)
	if err != nil {
		log.Fatalf("rabbit: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				err := handleJob(ctx, mgr, repo, m.JobID)
				if err == nil {
					if err := d.Ack(false); err != nil {
						log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
					}
					continue
				}

				// Transient failure: bounce through the retry queue,
				// dead-letter once attempts run out.
				log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, m.JobID, time.Since(start), err)
				retried, rerr := consumer.Retry(ctx, d)
				if rerr != nil {
					log.Printf("worker=%d retry publish failed job=%s err=%v", workerID, m.JobID, rerr)
					_ = d.Nack(false, false)
					continue
				}
				if !retried {
					log.Printf("worker=%d job %s exhausted retries, dead-lettering", workerID, m.JobID)
					_ = d.Nack(false, false)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// handleJob drives one queued turn through the conversation's coordinator.
// The coordinator serializes turns per conversation, so concurrent workers
// cannot interleave streams for the same conversation.
//
// The returned error is only for transient infrastructure failures worth
// redelivering. A turn that ran and failed is recorded on the job row and
// is terminal; redelivering it would re-run the prompt.
func handleJob(ctx context.Context, mgr *chat.Manager, repo *chat.Repo, jobID string) error {
	j, err := repo.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if j.Status == chat.JobSucceeded || j.Status == chat.JobFailed {
		// Redelivered after completion; nothing to do.
		return nil
	}

	_ = repo.UpdateJobStatusRunning(ctx, jobID)

	turn := mgr.Coordinator(j.ConversationID).Submit(ctx, j.Prompt)
	msg, err := turn.Wait(ctx)
	if err != nil {
		_ = repo.MarkJobFailed(ctx, jobID, err.Error())
		return nil
	}

	if err := repo.MarkJobSucceeded(ctx, jobID, msg.MessageID); err != nil {
		return fmt.Errorf("record job %s result: %w", jobID, err)
	}
	return nil
}

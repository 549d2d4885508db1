package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/kassandra/internal/api"
	"github.com/wonny/kassandra/internal/api/handlers"
	"github.com/wonny/kassandra/internal/scheduler"
	"github.com/wonny/kassandra/pkg/config"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /                              - 서비스 정보
  GET  /health                        - Health check
  GET  /metrics                       - Prometheus metrics
  POST /api/predict                   - 예측 실행 {stock, start_date, end_date}
  GET  /api/predictions/{symbol}/latest - 최근 예측 조회
  GET  /download/features?path=...    - 피처 CSV
  GET  /download/predictions?path=... - 예측 로그 CSV

SCHEDULE_ENABLED=true 이면 예측 갱신 스케줄러도 함께 실행합니다.

Example:
  go run ./cmd/kassandra api
  go run ./cmd/kassandra api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Kassandra API Server ===")

	a, err := newApp(cmd.Context(), func(cfg *config.Config) {
		if apiPort != "" {
			cfg.Port = apiPort
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	// Health checks
	checks := map[string]handlers.Check{
		"redis": a.redis.Ping,
	}
	if a.db != nil {
		checks["database"] = a.db.Ping
	}

	routes := api.Routes{
		Predict: handlers.NewPredictHandler(a.service, a.repo, a.exporter, a.log),
		Health:  handlers.NewHealthHandler("kassandra", checks),
	}
	if a.cfg.MetricsEnabled {
		routes.Metrics = a.metrics.Handler()
		routes.Observer = a.metrics
	}

	router := api.NewRouter(routes, a.log)
	server := api.New(a.cfg, a.log, router)

	// Optional in-process scheduler
	if a.cfg.Schedule.Enabled {
		sched, err := buildScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		printJobs(sched)
	}

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(cmd.Context()); err != nil {
		return err
	}
	a.log.Info("Server stopped")
	return nil
}

// printJobs lists registered jobs with their next run
func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		next, _ := sched.NextRun(name)
		if next.IsZero() {
			fmt.Printf("  - %s\n", name)
			continue
		}
		fmt.Printf("  - %s (next: %s)\n", name, next.Format("2006-01-02 15:04:05"))
	}
}

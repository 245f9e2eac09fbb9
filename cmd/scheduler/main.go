package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/hadronomy/scheduler/internal/capture"
	"github.com/hadronomy/scheduler/internal/config"
	"github.com/hadronomy/scheduler/internal/extract"
	"github.com/hadronomy/scheduler/internal/gcal"
	"github.com/hadronomy/scheduler/internal/ics"
	appLog "github.com/hadronomy/scheduler/internal/log"
	"github.com/hadronomy/scheduler/internal/model"
	"github.com/hadronomy/scheduler/internal/schedule"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	schedule   string
	image      string
	fromWeb    bool
	icsOut     string
	dryRun     bool
	sync       bool
	daemon     bool
	logLevel   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlagOverrides(conf, flags)
	appLog.SetLevel(conf.LogLevel)
	defer appLog.Sync()

	appLog.Info("scheduler starting",
		"schedule_path", conf.SchedulePath,
		"ics_output", conf.ICSOutputPath,
		"sync", flags.sync,
		"daemon", flags.daemon,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.daemon {
		if err := runDaemon(ctx, conf, flags); err != nil {
			appLog.Error("daemon failed", err)
			os.Exit(1)
		}
		return
	}

	if err := runOnce(ctx, conf, flags); err != nil {
		appLog.Error("run failed", err)
		os.Exit(1)
	}
}

// runDaemon re-runs the pipeline on the configured cron schedule until
// the context is cancelled. One run happens immediately on startup.
func runDaemon(ctx context.Context, conf *config.Config, flags flagConfig) error {
	if conf.RefreshCron == "" {
		return errors.New("daemon mode requires a refresh cron expression in the config")
	}

	if err := runOnce(ctx, conf, flags); err != nil {
		appLog.Error("initial run failed", err)
	}

	c := cron.New()
	_, err := c.AddFunc(conf.RefreshCron, func() {
		if err := runOnce(ctx, conf, flags); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh cron %q: %w", conf.RefreshCron, err)
	}

	c.Start()
	<-ctx.Done()
	stop := c.Stop()
	<-stop.Done()
	return nil
}

// runOnce executes one full pipeline pass: obtain a schedule document,
// validate it, expand it, then hand the instances to the configured
// sinks. Validation or expansion failure aborts the pass; no sink ever
// sees a partial result.
func runOnce(ctx context.Context, conf *config.Config, flags flagConfig) error {
	sched, err := obtainSchedule(ctx, conf, flags)
	if err != nil {
		return err
	}

	if err := schedule.Validate(sched); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			for _, issue := range verr.Issues {
				appLog.Error("schedule issue", errors.New(issue.Message), "path", issue.Path, "kind", string(issue.Kind))
			}
		}
		return fmt.Errorf("schedule rejected: %w", err)
	}

	instances, err := schedule.ExpandWithOptions(sched, schedule.ExpandOptions{
		MaxInstancesPerItem: conf.MaxInstancesPerItem,
	})
	if err != nil {
		return fmt.Errorf("expansion failed: %w", err)
	}
	appLog.Info("schedule expanded", "items", len(sched.Items), "instances", len(instances))

	if flags.dryRun {
		out, err := json.MarshalIndent(instances, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if conf.ICSOutputPath != "" {
		if err := ics.WriteFile(conf.ICSOutputPath, sched.TimeZone, instances); err != nil {
			return fmt.Errorf("ics export failed: %w", err)
		}
		appLog.Info("ics written", "path", conf.ICSOutputPath, "instances", len(instances))
	}

	if flags.sync {
		if conf.Google == nil {
			return errors.New("sync requested but no google section in the config")
		}
		if err := syncToGoogle(ctx, conf.Google, sched.TimeZone, instances); err != nil {
			return fmt.Errorf("google sync failed: %w", err)
		}
	}

	return nil
}

// obtainSchedule picks the document source: an explicit image file, a
// captured webpage, or an already-extracted schedule JSON file.
func obtainSchedule(ctx context.Context, conf *config.Config, flags flagConfig) (*model.Schedule, error) {
	switch {
	case flags.image != "":
		doc, err := os.ReadFile(flags.image)
		if err != nil {
			return nil, err
		}
		return visionExtractor(conf).Extract(ctx, doc, mimeFromPath(flags.image))

	case flags.fromWeb:
		if conf.Capture == nil {
			return nil, errors.New("-from-web requires a capture section in the config")
		}
		png, err := capture.TimetablePNG(ctx, capture.Options{
			URL:          conf.Capture.URL,
			WaitSelector: conf.Capture.WaitSelector,
			Width:        conf.Capture.Width,
			Height:       conf.Capture.Height,
		})
		if err != nil {
			return nil, err
		}
		return visionExtractor(conf).Extract(ctx, png, "image/png")

	default:
		return extract.FromFile(conf.SchedulePath)
	}
}

func visionExtractor(conf *config.Config) *extract.VisionExtractor {
	return extract.NewVisionExtractor(
		conf.Extraction.Endpoint,
		conf.Extraction.Model,
		os.Getenv(conf.Extraction.APIKeyEnv),
	)
}

func syncToGoogle(ctx context.Context, g *config.GoogleConfig, tz model.TimeZoneID, instances []model.EventInstance) error {
	oauthConf, err := gcal.LoadCredentials(g.CredentialsPath)
	if err != nil {
		return err
	}
	httpClient, err := gcal.Authenticate(ctx, oauthConf, gcal.NewFileTokenStore(g.TokenPath))
	if err != nil {
		return err
	}
	client, err := gcal.NewClient(ctx, httpClient)
	if err != nil {
		return err
	}
	calendarID, err := client.FindOrCreateCalendar(g.CalendarName, g.CalendarColorID)
	if err != nil {
		return err
	}
	return client.SyncInstances(calendarID, tz, instances)
}

func mimeFromPath(path string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".jpg"),
		strings.HasSuffix(strings.ToLower(path), ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(strings.ToLower(path), ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

func applyFlagOverrides(conf *config.Config, flags flagConfig) {
	if flags.schedule != "" {
		conf.SchedulePath = flags.schedule
	}
	if flags.icsOut != "" {
		conf.ICSOutputPath = flags.icsOut
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.schedule, "schedule", "", "Schedule JSON file (overrides config if set)")
	flag.StringVar(&cfg.image, "image", "", "Timetable image to extract via the vision endpoint")
	flag.BoolVar(&cfg.fromWeb, "from-web", false, "Capture the configured timetable webpage as extraction input")
	flag.StringVar(&cfg.icsOut, "out", "", "ICS output path (overrides config if set)")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Print expanded instances as JSON and exit")
	flag.BoolVar(&cfg.sync, "sync", false, "Sync expanded instances to Google Calendar")
	flag.BoolVar(&cfg.daemon, "daemon", false, "Keep running and refresh on the configured cron schedule")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	flag.Parse()

	return cfg
}

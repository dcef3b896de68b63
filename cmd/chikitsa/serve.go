package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/ayusman/chikitsa/internal/app"
	"github.com/ayusman/chikitsa/internal/config"
	"github.com/ayusman/chikitsa/internal/pose"
	"github.com/ayusman/chikitsa/internal/report"
	"github.com/ayusman/chikitsa/internal/server"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
	"github.com/ayusman/chikitsa/internal/tray"
)

func newServeCommand(configFlag *string) *cobra.Command {
	var withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coaching daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configFlag, withTray)
		},
	}

	cmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray icon")

	return cmd
}

func runServe(configPath string, withTray bool) error {
	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("Loaded configuration from %s", resolvedPath)
	} else {
		log.Printf("No configuration file at %s, using defaults", resolvedPath)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	// Only one daemon may own the camera and database.
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another chikitsa instance is already running")
	}
	defer lock.Unlock()

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	application := app.New(app.Config{
		Store:             st,
		PluginDir:         cfg.Feedback.PluginDir,
		CameraID:          cfg.Camera.DeviceID,
		PresenceThreshold: cfg.Camera.PresenceThreshold,
		IdleFPS:           cfg.Camera.IdleFPS,
		ActiveFPS:         cfg.Camera.ActiveFPS,
		Detector: pose.Config{
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConfidence,
			ModelComplexity: cfg.Detector.ModelComplexity,
		},
		Session: sessionConfig(cfg),
		Reporter: report.NewGenerator(report.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}),
	})

	if err := application.SyncCatalog(); err != nil {
		return fmt.Errorf("sync catalog: %w", err)
	}

	if err := application.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer application.Stop()

	srv := server.New(server.Config{
		StaticDir: findWebDir(),
		Store:     st,
		Coach:     application,
		Camera:    application.Camera(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving on %s", cfg.Server.Bind)
		errCh <- srv.ListenAndServe(cfg.Server.Bind)
	}()

	if withTray {
		t := tray.New()
		t.OnToggle(application.SetEnabled)
		t.OnQuit(func() {})
		// systray.Run blocks until quit
		t.Run()
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
		return nil
	case err := <-errCh:
		return err
	}
}

// sessionConfig maps the coach knobs onto the session defaults.
func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	if cfg.Coach.CooldownMs > 0 {
		sc.Cooldown = time.Duration(cfg.Coach.CooldownMs) * time.Millisecond
	}
	if cfg.Coach.CountdownCooldownMs > 0 {
		sc.CountdownCooldown = time.Duration(cfg.Coach.CountdownCooldownMs) * time.Millisecond
	}
	if cfg.Coach.ErrorPenalty > 0 {
		sc.ErrorPenalty = cfg.Coach.ErrorPenalty
	}
	if cfg.Coach.RecoveryCredit > 0 {
		sc.RecoveryCredit = cfg.Coach.RecoveryCredit
	}
	return sc
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := homeDir + "/.chikitsa/web"
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

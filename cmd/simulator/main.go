package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	apiURL      string
	cookieName  string
	sessionFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Drive the motor dashboard API from the command line",
		Long: `Simulator is a development tool that plays the part of the dashboard
front end: it registers farmers, logs in, toggles the pump motor and reads the
phase detector and activity history.`,
		SilenceUsage: true,
	}

	defaultURL := "http://localhost:8080"
	if env := os.Getenv("API_URL"); env != "" {
		defaultURL = env
	}
	defaultSession := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultSession = filepath.Join(home, ".farmer-corner-session")
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", defaultURL, "backend base URL (env API_URL)")
	cmd.PersistentFlags().StringVar(&opts.cookieName, "cookie-name", "farmer_sid", "session cookie name")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSession, "file holding the session between runs (empty to disable)")

	cmd.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newToggleCmd(opts),
		newPhaseCmd(opts),
		newHistoryCmd(opts),
		newDemoCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

func (o *options) client() (*APIClient, error) {
	return NewAPIClient(o.apiURL, o.cookieName, o.sessionFile)
}

func newRegisterCmd(opts *options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a farmer account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			user, err := client.Register(username, password)
			if err != nil {
				return err
			}
			cmd.Printf("registered %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (at least 3 characters)")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 6 characters)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			user, err := client.Login(username, password)
			if err != nil {
				return err
			}
			cmd.Printf("logged in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the remembered session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if err := client.Logout(); err != nil {
				return err
			}
			cmd.Println("logged out")
			return nil
		},
	}
}

func newToggleCmd(opts *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Switch the motor on or off",
		RunE: func(cmd *cobra.Command, _ []string) error {
			on, err := parseStatus(status)
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			result, err := client.Toggle(on)
			if err != nil {
				return err
			}
			cmd.Printf("motor %s at %s\n", onOff(result.Status), result.Timestamp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "on or off")
	cmd.MarkFlagRequired("status")
	return cmd
}

func newPhaseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "phase",
		Short: "Read the active electrical phase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			reading, err := client.Phase()
			if err != nil {
				return err
			}
			cmd.Printf("active phase %d at %s\n", reading.ActivePhase, reading.Timestamp.Format(time.RFC3339))
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent motor and phase activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			return printHistory(cmd, client, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of records per list")
	return cmd
}

func newDemoCmd(opts *options) *cobra.Command {
	var toggles int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Register a random farmer and exercise every endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			username := "farmer_" + uuid.New().String()[:8]
			password := "demo-password"

			cmd.Print("Registering farmer... ")
			if _, err := client.Register(username, password); err != nil {
				cmd.Println("FAILED")
				return err
			}
			cmd.Printf("OK (%s)\n", username)

			cmd.Print("Logging in... ")
			if _, err := client.Login(username, password); err != nil {
				cmd.Println("FAILED")
				return err
			}
			cmd.Println("OK")

			for i := 0; i < toggles; i++ {
				result, err := client.Toggle(i%2 == 0)
				if err != nil {
					return err
				}
				cmd.Printf("  toggle %d: motor %s\n", i+1, onOff(result.Status))
			}

			reading, err := client.Phase()
			if err != nil {
				return err
			}
			cmd.Printf("  active phase: %d\n", reading.ActivePhase)

			cmd.Println()
			return printHistory(cmd, client, 5)
		},
	}
	cmd.Flags().IntVar(&toggles, "toggles", 7, "number of motor toggles")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live motor and phase events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cmd.Println("watching live feed (ctrl-c to stop)")
			return client.Watch(ctx, func(e FeedEvent) {
				cmd.Printf("  %s  %s  %s\n", time.UnixMilli(e.Timestamp).Format(time.RFC3339), e.Type, string(e.Payload))
			})
		},
	}
}

func printHistory(cmd *cobra.Command, client *APIClient, limit int) error {
	motor, err := client.MotorHistory(limit)
	if err != nil {
		return err
	}
	phases, err := client.PhaseHistory(limit)
	if err != nil {
		return err
	}

	cmd.Println("Motor activity (newest first):")
	for _, r := range motor {
		cmd.Printf("  %s  %s\n", r.Timestamp.Format(time.RFC3339), onOff(r.Status))
	}
	cmd.Println("Phase detections (newest first):")
	for _, r := range phases {
		cmd.Printf("  %s  phase %d\n", r.Timestamp.Format(time.RFC3339), r.ActivePhase)
	}
	return nil
}

func parseStatus(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid --status %q: use on or off", s)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

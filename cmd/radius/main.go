package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"radius-go/internal/app"
	"radius-go/internal/config"
	"radius-go/internal/geo"
	"radius-go/internal/radius"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a RadiusApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "fetch", "venue visit").
func newApp(ctx context.Context, operation string) (*app.RadiusApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	if err := app.LoadEnv(defaults["base_dir"]); err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg.ApplyEnv()

	a, err := app.NewRadiusApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "radius",
	Short:        "Track nearby venues and sync visits across devices",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		deviceID := uuid.New().String()
		cfg := config.NewConfig(deviceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Device ID:  %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Remote:     %s\n", cfg.Remote.Type)
		fmt.Printf("Places URL: %s\n", cfg.Places.BaseURL)
		fmt.Printf("Terms:      %v\n", cfg.Places.Terms)
		return nil
	},
}

// home command
var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Manage the home base",
}

var homeSetCmd = &cobra.Command{
	Use:   "set ADDRESS",
	Short: "Set the home base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		ctx := cmd.Context()

		a, err := newApp(ctx, "home set")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetHome(ctx, args[0], lat, lng); err != nil {
			return fmt.Errorf("setting home: %w", err)
		}

		fmt.Printf("Home set to %s (%.6f, %.6f)\n", args[0], lat, lng)
		return nil
	},
}

var homeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the home base",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "home show")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.User(ctx)
		if err != nil {
			return err
		}

		if user.Home().IsZero() {
			fmt.Println("No home base set.")
			return nil
		}
		fmt.Printf("%s (%.6f, %.6f)\n", user.Address, user.Lat, user.Lng)
		if !user.LastFetchAt.IsZero() {
			fmt.Printf("Last fetch: %s\n", user.LastFetchAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch nearby venues and merge them into history",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		ctx := cmd.Context()

		a, err := newApp(ctx, "fetch")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.RefreshVenues(ctx, force)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		if result == nil {
			fmt.Println("Venues are up to date; use --force to fetch anyway.")
			return nil
		}

		fmt.Printf("Updated %d, inserted %d, skipped %d, stale %d\n",
			result.Updated, result.Inserted, result.Skipped, result.Stale)
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile visited and hidden state with the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "sync")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.FullSync(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printSyncResult(result)
		return nil
	},
}

func printSyncResult(result *radius.SyncResult) {
	fmt.Printf("Pulled %d, pushed %d, in sync %d, unmatched %d\n",
		result.Pulled, result.Pushed, result.InSync, result.Unmatched)
	if result.DecodeFailures > 0 || result.PushFailures > 0 {
		fmt.Printf("Skipped %d malformed remote record(s), %d push failure(s)\n",
			result.DecodeFailures, result.PushFailures)
	}
}

// venues command
var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "Browse venues",
}

var venuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List venues visible under the current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "venues list")
		if err != nil {
			return err
		}
		defer a.Close()

		venues, err := a.ListVenues(ctx)
		if err != nil {
			return err
		}

		if len(venues) == 0 {
			fmt.Println("No venues.")
			return nil
		}

		var farthest float64
		for _, v := range venues {
			flags := ""
			if v.Visited {
				flags += "V"
			} else {
				flags += " "
			}
			if v.Hidden {
				flags += "H"
			} else {
				flags += " "
			}
			fmt.Printf("%s  %5.2f mi  %3.1f  %5d  %-30s  %s\n",
				flags, v.MilesFromHome, v.Rating, v.ReviewCount, v.Name, v.ID)
			farthest = max(farthest, v.MilesFromHome)
		}
		fmt.Printf("\n%d venue(s), map zoom %.0f\n", len(venues), geo.ZoomForDistance(farthest/geo.MilesPerMeter))
		return nil
	},
}

// venue command
var venueCmd = &cobra.Command{
	Use:   "venue",
	Short: "Change a venue's visited or hidden state",
}

// newVenueStateCmd builds one of the visit/unvisit/hide/unhide subcommands.
func newVenueStateCmd(use, short, operation string, apply func(ctx context.Context, a *app.RadiusApp, id string) (*radius.Venue, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " VENUE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, operation)
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := apply(ctx, a, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: visited=%t hidden=%t\n", v.Name, v.Visited, v.Hidden)
			return nil
		},
	}
}

var (
	venueVisitCmd = newVenueStateCmd("visit", "Mark a venue visited", "venue visit",
		func(ctx context.Context, a *app.RadiusApp, id string) (*radius.Venue, error) {
			return a.SetVisited(ctx, id, true)
		})
	venueUnvisitCmd = newVenueStateCmd("unvisit", "Mark a venue unvisited", "venue unvisit",
		func(ctx context.Context, a *app.RadiusApp, id string) (*radius.Venue, error) {
			return a.SetVisited(ctx, id, false)
		})
	venueHideCmd = newVenueStateCmd("hide", "Hide a venue", "venue hide",
		func(ctx context.Context, a *app.RadiusApp, id string) (*radius.Venue, error) {
			return a.SetHidden(ctx, id, true)
		})
	venueUnhideCmd = newVenueStateCmd("unhide", "Unhide a venue", "venue unhide",
		func(ctx context.Context, a *app.RadiusApp, id string) (*radius.Venue, error) {
			return a.SetHidden(ctx, id, false)
		})
)

var venueForgetCmd = &cobra.Command{
	Use:   "forget VENUE_ID",
	Short: "Remove a venue from local history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "venue forget")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ForgetVenue(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Forgot venue %s\n", args[0])
		return nil
	},
}

// prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Set which venues the list shows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "prefs")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.User(ctx)
		if err != nil {
			return err
		}

		// Flags left unset keep their stored value.
		showVisited, showUnvisited, showHidden := user.ShowVisited, user.ShowUnvisited, user.ShowHidden
		if cmd.Flags().Changed("visited") {
			showVisited, _ = cmd.Flags().GetBool("visited")
		}
		if cmd.Flags().Changed("unvisited") {
			showUnvisited, _ = cmd.Flags().GetBool("unvisited")
		}
		if cmd.Flags().Changed("hidden") {
			showHidden, _ = cmd.Flags().GetBool("hidden")
		}

		if err := a.SetPreferences(ctx, showVisited, showUnvisited, showHidden); err != nil {
			return err
		}
		fmt.Printf("Show visited=%t unvisited=%t hidden=%t\n", showVisited, showUnvisited, showHidden)
		return nil
	},
}

// signin command
var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Attach an identity to this device and sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		uid, _ := cmd.Flags().GetString("uid")
		ctx := cmd.Context()

		a, err := newApp(ctx, "signin")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.SignIn(ctx, email, uid)
		if err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}
		fmt.Printf("Signed in as %s\n", email)
		printSyncResult(result)
		return nil
	},
}

// signout command
var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Detach the identity from this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "signout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out. Local venue history is kept.")
		return nil
	},
}

// account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the account",
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the account from this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "account delete")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.DeleteAccount(ctx)
		if err != nil {
			return fmt.Errorf("account deletion failed: %w", err)
		}
		if deleted {
			fmt.Println("Account deleted. Local venue history is kept.")
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		a, err := newApp(ctx, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(ctx, limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-14s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// home subcommands
	homeCmd.AddCommand(homeSetCmd)
	homeCmd.AddCommand(homeShowCmd)
	homeSetCmd.Flags().Float64("lat", 0, "Latitude of the home base")
	homeSetCmd.Flags().Float64("lng", 0, "Longitude of the home base")
	homeSetCmd.MarkFlagRequired("lat")
	homeSetCmd.MarkFlagRequired("lng")

	// venue subcommands
	venuesCmd.AddCommand(venuesListCmd)
	venueCmd.AddCommand(venueVisitCmd)
	venueCmd.AddCommand(venueUnvisitCmd)
	venueCmd.AddCommand(venueHideCmd)
	venueCmd.AddCommand(venueUnhideCmd)
	venueCmd.AddCommand(venueForgetCmd)

	// account subcommands
	accountCmd.AddCommand(accountDeleteCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolP("force", "f", false, "Fetch even if the last fetch is recent")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(venuesCmd)
	rootCmd.AddCommand(venueCmd)
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.Flags().Bool("visited", true, "Show visited venues")
	prefsCmd.Flags().Bool("unvisited", true, "Show unvisited venues")
	prefsCmd.Flags().Bool("hidden", false, "Show hidden venues")
	rootCmd.AddCommand(signinCmd)
	signinCmd.Flags().String("email", "", "Account email")
	signinCmd.Flags().String("uid", "", "Identity provider user id")
	signinCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(signoutCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/asklens/asklens/internal/output"
	"github.com/asklens/asklens/internal/pool"
	"github.com/asklens/asklens/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage connected data sources",
}

var sourcesListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List configured sources and their status",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := buildLogger()
		defer log.Sync()

		store := source.NewConfigStore(log)
		var entries []source.ConfigEntry
		if err := viper.UnmarshalKey("sources", &entries); err != nil {
			return fmt.Errorf("reading sources config: %w", err)
		}
		if err := store.Load(entries); err != nil {
			return err
		}

		descs, err := store.ListActive(context.Background(), 1)
		if err != nil {
			return err
		}
		renderer := output.NewRenderer(viper.GetString("format"), os.Stdout)
		renderer.RenderSources(descs)
		return nil
	},
}

var sourcesTestCmd = &cobra.Command{
	Use:          "test <name>",
	Short:        "Test connectivity for one configured source",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := buildLogger()
		defer log.Sync()

		var entries []source.ConfigEntry
		if err := viper.UnmarshalKey("sources", &entries); err != nil {
			return fmt.Errorf("reading sources config: %w", err)
		}

		var entry *source.ConfigEntry
		for i := range entries {
			if strings.EqualFold(entries[i].Name, args[0]) {
				entry = &entries[i]
				break
			}
		}
		if entry == nil {
			return fmt.Errorf("no source named %q in the config", args[0])
		}

		switch source.Kind(entry.Kind) {
		case source.KindPostgres, source.KindMySQL:
			return testLive(*entry)
		default:
			return testFile(*entry)
		}
	},
}

func testLive(entry source.ConfigEntry) error {
	dsn := entry.DSN
	// The config may omit the password; prompt instead of storing it.
	if strings.Contains(dsn, "${PASSWORD}") {
		dsn = strings.ReplaceAll(dsn, "${PASSWORD}", promptSecret())
	}

	pools := pool.NewRegistry(buildLogger())
	defer pools.CloseAll()

	db, err := pools.Pool(source.Kind(entry.Kind), dsn)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Printf("✅ %s: connection OK\n", entry.Name)
	return nil
}

func testFile(entry source.ConfigEntry) error {
	store := source.NewConfigStore(buildLogger())
	if err := store.Load([]source.ConfigEntry{entry}); err != nil {
		return err
	}
	descs, err := store.ListActive(context.Background(), 1)
	if err != nil {
		return err
	}
	d := descs[0]
	if d.Status == source.StatusError {
		return fmt.Errorf("rows file %s is unreadable", entry.Rows)
	}
	fmt.Printf("✅ %s: %d rows, columns: %s\n", d.Name, d.RowCount, strings.Join(d.Schema.Names, ", "))
	return nil
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret() string {
	fmt.Print("Password: ")
	secret, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(secret)
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesTestCmd)
}

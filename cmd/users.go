package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

// userEntry is the YAML form of a user used by users import and users list
type userEntry struct {
	ID        int64   `yaml:"id,omitempty"`
	Name      string  `yaml:"name"`
	Birthyear *int    `yaml:"birthyear,omitempty"`
	Gender    *string `yaml:"gender,omitempty"`
	Height    *int    `yaml:"height,omitempty"`
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage scale users",
}

var usersImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update users from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		entries, err := parseUsers(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		var created, updated int
		err = store.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
			users, created, updated = mergeUsers(users, entries, time.Now().UTC())
			return users, nil
		})
		if err != nil {
			return err
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "Imported users", slog.Int("created", created), slog.Int("updated", updated))
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored users as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		users, err := store.ListUsers(ctx)
		if err != nil {
			return err
		}
		return writeUsers(cmd.OutOrStdout(), users)
	},
}

func init() {
	usersCmd.AddCommand(usersImportCmd, usersListCmd)
	rootCmd.AddCommand(usersCmd)
}

func parseUsers(r io.Reader) ([]userEntry, error) {
	var entries []userEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("user %d: name is required", i+1)
		}
	}
	return entries, nil
}

// mergeUsers updates users whose id matches an entry and appends the rest
// with fresh ids. Tolerances of existing users are kept.
func mergeUsers(users []measurement.User, entries []userEntry, now time.Time) ([]measurement.User, int, int) {
	var created, updated int
	for _, e := range entries {
		if e.ID != 0 {
			if i := measurement.IndexOfUser(users, e.ID); i >= 0 {
				users[i].Name = e.Name
				users[i].Birthyear = e.Birthyear
				users[i].Gender = e.Gender
				users[i].Height = e.Height
				updated++
				continue
			}
		}
		id := e.ID
		if id == 0 {
			id = measurement.NextUserID(users)
		}
		users = append(users, measurement.User{
			ID:        id,
			Name:      e.Name,
			Birthyear: e.Birthyear,
			Gender:    e.Gender,
			Height:    e.Height,
			Created:   now,
		})
		created++
	}
	return users, created, updated
}

func writeUsers(w io.Writer, users []measurement.User) error {
	entries := make([]userEntry, len(users))
	for i, u := range users {
		entries[i] = userEntry{
			ID:        u.ID,
			Name:      u.Name,
			Birthyear: u.Birthyear,
			Gender:    u.Gender,
			Height:    u.Height,
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return enc.Close()
}

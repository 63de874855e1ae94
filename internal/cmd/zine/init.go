package zine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/i18n"
	"github.com/zineproject/zine/internal/instance"
	"github.com/zineproject/zine/internal/storage"
	"github.com/zineproject/zine/internal/storage/sqlite"
)

// minPasswordLength matches the web setup assistant's rule.
const minPasswordLength = 8

func newInitCmd() *cobra.Command {
	var (
		username    string
		password    string
		email       string
		title       string
		blogURL     string
		languageTag string
		databaseURI string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a ready-to-serve instance",
		Long: `Init scaffolds the instance directory, creates the database with the
first administrator account, and commits the initial configuration. It
is the non-interactive twin of the web setup assistant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveInstancePath(cmd)
			if err != nil {
				return err
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password needs at least %d characters", minPasswordLength)
			}
			if err := i18n.Validate(languageTag); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			inst, err := instance.Scaffold(path)
			if err != nil {
				return err
			}
			if inst.Initialized() {
				return fmt.Errorf("instance %s is already initialized, use zine reset to start over", inst.Root())
			}
			step(out, "instance layout at %s", inst.Root())

			if _, err := sqlite.ResolveURI(databaseURI, inst.Root()); err != nil {
				return err
			}
			store, err := sqlite.OpenURI(databaseURI, inst.Root())
			if err != nil {
				return fmt.Errorf("create database: %w", err)
			}
			defer store.Close()
			if _, err := store.CreateUser(cmd.Context(), storage.NewUser{
				Username: username,
				Email:    email,
				Password: password,
				IsAdmin:  true,
			}); err != nil {
				return fmt.Errorf("create admin account: %w", err)
			}
			step(out, "database ready, admin account %s created", username)

			secret, err := generateSecret(32)
			if err != nil {
				return fmt.Errorf("generate secret key: %w", err)
			}
			cfg, err := config.Open(inst.ConfigPath(), config.DefaultVars())
			if err != nil {
				return err
			}
			values := map[string]any{
				"database_uri": databaseURI,
				"secret_key":   secret,
				"iid":          uuid.NewString(),
				"language":     i18n.Normalize(languageTag).String(),
			}
			if title != "" {
				values["blog_title"] = title
			}
			if blogURL != "" {
				values["blog_url"] = blogURL
			}
			tx := cfg.Edit()
			if err := tx.Update(values); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			step(out, "configuration committed")

			success(out, "instance ready, run zine serve to bring it up")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin account name")
	cmd.Flags().StringVar(&password, "password", "", "admin account password")
	cmd.Flags().StringVar(&email, "email", "", "admin account email")
	cmd.Flags().StringVar(&title, "title", "", "blog title")
	cmd.Flags().StringVar(&blogURL, "blog-url", "", "public base URL of the blog")
	cmd.Flags().StringVar(&languageTag, "language", "en", "blog language tag")
	cmd.Flags().StringVar(&databaseURI, "database", "sqlite://"+instance.DatabaseFileName, "database location")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func generateSecret(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Command admin manages groups, cached pages and accounts from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Inkwell administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(groupsCmd(), cacheCmd(), usersCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withRuntime loads the configuration, connects and runs fn.
func withRuntime(fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(context.Background(), rt)
}

// withDB opens the database without applying the schema, for the migrate
// commands that manage the schema themselves.
func withDB(fn func(ctx context.Context, cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(context.Background(), cfg, db)
}

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "groups", Short: "Manage groups"}

	var slug, title, description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := validation.ValidateSlug(slug); err != nil {
				return err
			}
			title = strings.TrimSpace(title)
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			group := &models.Group{
				Slug:        slug,
				Title:       title,
				Description: description,
			}
			return withRuntime(func(ctx context.Context, rt *bootstrap.Runtime) error {
				if err := repository.NewGroupRepository(rt.DB).Create(ctx, group); err != nil {
					return err
				}
				fmt.Printf("Created group %s (ID: %d)\n", group.Slug, group.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&slug, "slug", "", "URL slug (lowercase words joined by - or _)")
	create.Flags().StringVar(&title, "title", "", "display title")
	create.Flags().StringVarP(&description, "description", "d", "", "group description")
	_ = create.MarkFlagRequired("slug")
	_ = create.MarkFlagRequired("title")

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withRuntime(func(ctx context.Context, rt *bootstrap.Runtime) error {
				groups, err := repository.NewGroupRepository(rt.DB).List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSLUG\tTITLE")
				for _, g := range groups {
					fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
				}
				return w.Flush()
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a group; its posts are kept without a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *bootstrap.Runtime) error {
				if err := repository.NewGroupRepository(rt.DB).Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted group %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Manage the page cache"}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached page",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withRuntime(func(ctx context.Context, rt *bootstrap.Runtime) error {
				if rt.Redis == nil {
					return fmt.Errorf("redis is not configured")
				}
				n, err := cache.ClearPages(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d cached pages\n", n)
				return nil
			})
		},
	})
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Inspect accounts"}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withRuntime(func(ctx context.Context, rt *bootstrap.Runtime) error {
				users, err := service.NewUserService(repository.NewUserRepository(rt.DB)).ListUsers(ctx, limit, offset)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL")
				for _, u := range users {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName(), u.Email)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum number of users")
	list.Flags().IntVar(&offset, "offset", 0, "number of users to skip")

	cmd.AddCommand(list)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				if err := database.RunMigrations(ctx, db); err != nil {
					return fmt.Errorf("sql migrations failed: %w", err)
				}
				fmt.Println("Blog schema is up to date")
				return nil
			})
		},
	}

	auto := &cobra.Command{
		Use:   "auto",
		Short: "Create or update tables from the models",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
				cfg.DBSchemaMode = database.SchemaModeAuto
				if err := database.ApplySchema(ctx, db, cfg); err != nil {
					return fmt.Errorf("automigrate failed: %w", err)
				}
				fmt.Printf("Tables synced for %d models\n", len(database.PersistentModels()))
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show which blog migrations are applied",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
				st, err := database.GetSchemaStatus(ctx, db, cfg)
				if err != nil {
					return fmt.Errorf("schema status failed: %w", err)
				}
				fmt.Printf("Database %s, schema mode %s, env %q\n", database.Dialect(db), st.Mode, st.Environment)
				if !st.WillRunSQL {
					fmt.Println("SQL migrations are not used here; tables come from AutoMigrate.")
					return nil
				}

				pending := make(map[int]bool, len(st.PendingMigrations))
				for _, m := range st.PendingMigrations {
					pending[m.Version] = true
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tMIGRATION\tSTATE")
				for _, m := range database.GetMigrations() {
					state := "applied"
					if pending[m.Version] {
						state = "pending"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, m.Name, state)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if st.WillRunAutoMigrate {
					fmt.Println("AutoMigrate also runs at startup in this mode.")
				}
				return nil
			})
		},
	}

	down := &cobra.Command{
		Use:   "down <version>",
		Short: "Roll back one applied migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			m := database.GetMigrationByVersion(version)
			if m == nil {
				return fmt.Errorf("no blog migration with version %d", version)
			}
			return withDB(func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				if err := database.RollbackMigration(ctx, db, version); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				fmt.Printf("Rolled back %s\n", m.String())
				return nil
			})
		},
	}

	cmd.AddCommand(up, auto, status, down)
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/db"
	"github.com/bmarone2002/legalcalendar/internal/domain"
	"github.com/bmarone2002/legalcalendar/internal/engine"
	"github.com/bmarone2002/legalcalendar/internal/migrate"
	"github.com/bmarone2002/legalcalendar/internal/repo"
	"github.com/bmarone2002/legalcalendar/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "legalcal",
	Short: "Legal Calendar CLI",
	Long: `Legalcal keeps a law practice calendar and derives procedural deadlines.
Core concepts:
- Workspace: the .legalcalendar directory holding the SQLite database.
- Event: a hearing, service, filing or generic appointment.
- Legal act: an event tagged with an action type (citazione, appello, ...) and
  a mode (da notificare / costituzione); its deadlines follow c.p.c. terms.
- Sub-event: a derived or manual deadline, reminder or activity. Locked
  sub-events survive regeneration, everything else is recomputed.
- Rules: atto-giuridico for legal acts, plus reminder, generic-deadline and
  checklist for ordinary events.
- Settings: reminder defaults, deadline times, August recess and extra
  holidays, stored in the DB and shared by every derivation.
- Audit log: diary of changes, view with 'legalcal log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LEGALCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(subCmd())
	rootCmd.AddCommand(eventRegenerateCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events",
		Long:  "Events carry the base dates. A legal act derives its deadlines from the action type, the mode and the dated inputs; other events may use the generic rules.",
	}
	ev.AddCommand(eventCreateCmd())
	ev.AddCommand(eventListCmd())
	ev.AddCommand(eventShowCmd())
	ev.AddCommand(eventUpdateCmd())
	ev.AddCommand(eventDeleteCmd())
	ev.AddCommand(eventRegenerateCmd())
	ev.AddCommand(eventPreviewCmd())
	return ev
}

type eventFlags struct {
	opts       engine.EventOptions
	paramsJSON string
	inputsJSON string
}

func (f *eventFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&f.opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.opts.StartAt, "start", "", "start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.opts.EndAt, "end", "", "end (defaults to start)")
	cmd.Flags().StringVar(&f.opts.Type, "type", "", "event type (udienza, notifica, deposito, scadenza, altro)")
	cmd.Flags().StringArrayVar(&f.opts.Tags, "tag", []string{}, "tag (repeatable)")
	cmd.Flags().StringVar(&f.opts.CaseID, "case", "", "case / pratica id")
	cmd.Flags().StringVar(&f.opts.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&f.opts.Color, "color", "", "display color")
	cmd.Flags().BoolVar(&f.opts.GenerateSubEvents, "generate", false, "derive sub-events")
	cmd.Flags().StringVar(&f.opts.RuleID, "rule", "", "derivation rule id")
	cmd.Flags().StringVar(&f.paramsJSON, "params-json", "", "rule params JSON")
	cmd.Flags().StringVar(&f.opts.ActionType, "action-type", "", "legal act type (CITAZIONE, APPELLO_CIVILE, ...)")
	cmd.Flags().StringVar(&f.opts.ActionMode, "action-mode", "", "legal act mode (DA_NOTIFICARE, COSTITUZIONE)")
	cmd.Flags().StringVar(&f.inputsJSON, "inputs-json", "", "legal act inputs JSON (dates, terms, memorie)")
}

func (f *eventFlags) options() (engine.EventOptions, error) {
	if f.paramsJSON != "" {
		if err := json.Unmarshal([]byte(f.paramsJSON), &f.opts.RuleParams); err != nil {
			return f.opts, fmt.Errorf("invalid --params-json: %w", err)
		}
	}
	if f.inputsJSON != "" {
		if err := json.Unmarshal([]byte(f.inputsJSON), &f.opts.Inputs); err != nil {
			return f.opts, fmt.Errorf("invalid --inputs-json: %w", err)
		}
	}
	return f.opts, nil
}

func eventCreateCmd() *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ev, err := e.CreateEvent(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func eventListCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Start", "Type", "Case", "Rule"})
				for _, ev := range items {
					tw.AppendRow(table.Row{ev.ID, ev.Title, ev.StartAt, ev.Type, ev.CaseID, ev.RuleID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.From, "from", "", "window start (inclusive)")
	cmd.Flags().StringVar(&f.To, "to", "", "window end (exclusive)")
	cmd.Flags().StringVar(&f.Type, "type", "", "type filter")
	cmd.Flags().StringVar(&f.CaseID, "case", "", "case filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max events")
	return cmd
}

func eventShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an event with its sub-events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ev, subs, err := e.GetEvent(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"event": ev, "sub_events": subs})
				}
				if err := printJSONOrTable(ev); err != nil {
					return err
				}
				renderSubEvents(subs)
				return nil
			})
		},
	}
	return cmd
}

func eventUpdateCmd() *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an event (full replacement, unlocked sub-events are rederived)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ev, err := e.UpdateEvent(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func eventDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event and its sub-events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteEvent(ctx, args[0])
			})
		},
	}
	return cmd
}

func eventRegenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Rederive sub-events, keeping locked rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				subs, err := e.Regenerate(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(subs)
				}
				renderSubEvents(subs)
				return nil
			})
		},
	}
	return cmd
}

func eventPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Show what regeneration would derive, without saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				candidates, err := e.Preview(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(candidates)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Title", "Kind", "Due", "Priority"})
				for _, c := range candidates {
					tw.AppendRow(table.Row{c.Title, c.Kind, c.DueAt.Format(time.RFC3339), c.Priority})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func previewCmd() *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "preview [id]",
		Short: "Derive sub-events without saving, for a stored event id or a draft from flags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var candidates []domain.SubEventCandidate
				var err error
				if len(args) == 1 {
					candidates, err = e.Preview(ctx, args[0])
				} else {
					var opts engine.EventOptions
					opts, err = flags.options()
					if err != nil {
						return err
					}
					candidates, err = e.PreviewOptions(ctx, opts)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(candidates)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Title", "Kind", "Due", "Priority"})
				for _, c := range candidates {
					tw.AppendRow(table.Row{c.Title, c.Kind, c.DueAt.Format(time.RFC3339), c.Priority})
				}
				tw.Render()
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func subCmd() *cobra.Command {
	sub := &cobra.Command{
		Use:   "sub",
		Short: "Manage sub-events",
		Long:  "Sub-events are the derived deadlines, reminders and activities. Lock the ones you adjusted by hand so regeneration leaves them alone.",
	}
	sub.AddCommand(subListCmd())
	sub.AddCommand(subAddCmd())
	sub.AddCommand(subStatusCmd())
	sub.AddCommand(subLockCmd(true))
	sub.AddCommand(subLockCmd(false))
	sub.AddCommand(subUpdateCmd())
	sub.AddCommand(subDeleteCmd())
	return sub
}

func subListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <event-id>",
		Short: "List sub-events of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				subs, err := e.Repo.ListSubEvents(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(subs)
				}
				renderSubEvents(subs)
				return nil
			})
		},
	}
	return cmd
}

func subAddCmd() *cobra.Command {
	var opts engine.SubEventOptions
	cmd := &cobra.Command{
		Use:   "add <event-id>",
		Short: "Add a manual sub-event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ParentEventID = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				se, err := e.AddSubEvent(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(se)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "kind (termine, promemoria, attivita)")
	cmd.Flags().StringVar(&opts.DueAt, "due", "", "due (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Priority, "priority", 0, "priority")
	cmd.Flags().StringVar(&opts.Explanation, "explanation", "", "explanation")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func subStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Update sub-event status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				se, err := e.SetSubEventStatus(ctx, args[0], domain.SubEventStatus(status))
				if err != nil {
					return err
				}
				return printJSONOrTable(se)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (pending, done, cancelled)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func subLockCmd(lock bool) *cobra.Command {
	use, short := "lock <id>", "Pin a sub-event against regeneration"
	if !lock {
		use, short = "unlock <id>", "Let regeneration replace a sub-event again"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				se, err := e.SetSubEventLocked(ctx, args[0], lock)
				if err != nil {
					return err
				}
				return printJSONOrTable(se)
			})
		},
	}
	return cmd
}

func subUpdateCmd() *cobra.Command {
	var title, due string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update sub-event title or due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && due == "" {
				return fmt.Errorf("--title or --due required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				se, err := e.UpdateSubEvent(ctx, args[0], title, due)
				if err != nil {
					return err
				}
				return printJSONOrTable(se)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&due, "due", "", "new due (RFC3339 or YYYY-MM-DD)")
	return cmd
}

func subDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sub-event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSubEvent(ctx, args[0])
			})
		},
	}
	return cmd
}

func rulesCmd() *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Derivation rules",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				type row struct {
					ID    string `json:"id"`
					Label string `json:"label"`
				}
				var rows []row
				for _, r := range e.Rules.List() {
					rows = append(rows, row{ID: r.ID(), Label: r.Label()})
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Label"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ID, r.Label})
				}
				tw.Render()
				return nil
			})
		},
	})
	return rules
}

func settingsCmd() *cobra.Command {
	set := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change settings",
		Long:  "Settings drive every derivation: reminder offsets and time, deadline time, comparizione terms, the August recess window and extra holidays.",
	}
	set.AddCommand(settingsShowCmd())
	set.AddCommand(settingsSetCmd())
	set.AddCommand(settingsImportCmd())
	set.AddCommand(settingsExportCmd())
	return set
}

func settingsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Settings(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func settingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <json>",
		Short: "Merge a partial settings JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.SaveSettings(ctx, []byte(args[0]))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func settingsImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import settings from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.ImportSettings(ctx, s); err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML settings")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func settingsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export effective settings as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Settings(ctx)
				if err != nil {
					return err
				}
				data, err := s.ToYAML()
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Audit log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var f repo.AuditFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.LatestAudit(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of entries")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("LEGALCAL_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("LEGALCAL_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Legal Calendar API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn))
}

func renderSubEvents(subs []domain.SubEvent) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Kind", "Due", "Status", "Locked", "By"})
	for _, se := range subs {
		tw.AppendRow(table.Row{se.ID, se.Title, se.Kind, se.DueAt, se.Status, se.Locked, se.CreatedBy})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

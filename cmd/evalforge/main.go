package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/evalforge/internal/evalimport"
	"github.com/pavelanni/evalforge/internal/handler"
	appI18n "github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
	"github.com/pavelanni/evalforge/internal/report"
	"github.com/pavelanni/evalforge/internal/store"
)

// errInvalidDocuments makes validate and import exit non-zero when any document fails.
var errInvalidDocuments = errors.New("one or more documents are invalid")

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "evalforge",
		Short:        "Evaluation authoring service: validate, import and serve evaluations",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, validateCmd(), importCmd(), listCmd(), exportCmd(), classCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `evalforge --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "evalforge.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default UI language (en, fr)")
	f.String("professor-id", "", "Professor assigned when a request carries no "+handler.ProfessorHeader+" header")
	f.Int64("max-upload", 1<<20, "Maximum size of an imported document in bytes")
	addLogFlags(cmd)
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate evaluation documents without importing them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate,
	}
	f := cmd.Flags()
	f.String("format", "auto", "Document format (auto, json, yaml)")
	addLogFlags(cmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Validate, normalize and store evaluation documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "evalforge.db", "SQLite database path")
	f.String("format", "auto", "Document format (auto, json, yaml)")
	f.String("professor-id", "", "Professor assigned to documents that name none")
	f.Bool("force", false, "Re-import files even if unchanged since the last import")
	addLogFlags(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored evaluations",
		RunE:  runList,
	}
	f := cmd.Flags()
	f.String("db", "evalforge.db", "SQLite database path")
	f.String("professor-id", "", "Only list evaluations of this professor")
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all evaluations as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "evalforge.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func classCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage classes",
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a class",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassAdd,
	}
	f := add.Flags()
	f.String("db", "evalforge.db", "SQLite database path")
	f.String("subject", "", "Subject taught to the class (required)")
	f.String("professor-id", "", "Professor owning the class (required)")
	addLogFlags(add)

	list := &cobra.Command{
		Use:   "list",
		Short: "List classes",
		RunE:  runClassList,
	}
	f = list.Flags()
	f.String("db", "evalforge.db", "SQLite database path")
	f.String("professor-id", "", "Only list classes of this professor")
	addLogFlags(list)

	cmd.AddCommand(add, list)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EVALFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("evalforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/evalforge")
	v.AddConfigPath("/etc/evalforge")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := model.ServerConfig{
		DefaultProfessorID: v.GetString("professor-id"),
		Lang:               lang,
		MaxUploadBytes:     v.GetInt64("max-upload"),
	}
	h, err := handler.New(db, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"professor_id", cfg.DefaultProfessorID,
		"max_upload", cfg.MaxUploadBytes,
	)
	return http.ListenAndServe(addr, r)
}

// documentFormat resolves "auto" from the file extension; anything that is not
// YAML is treated as JSON.
func documentFormat(flag, path string) string {
	switch strings.ToLower(flag) {
	case "json", "yaml":
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

func validateFile(path, format string) (evalimport.Result, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evalimport.Result{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if documentFormat(format, path) == "yaml" {
		return evalimport.ValidateYAML(string(data)), data, nil
	}
	return evalimport.Validate(string(data)), data, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	invalid := 0
	for _, path := range args {
		res, _, err := validateFile(path, v.GetString("format"))
		if err != nil {
			return err
		}
		if err := report.Validation(cmd.OutOrStdout(), path, res); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if !res.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		slog.Debug("validation failed", "invalid", invalid, "total", len(args))
		return errInvalidDocuments
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	normalizer := evalimport.NewNormalizer(evalimport.WithProfessor(v.GetString("professor-id")))
	out := cmd.OutOrStdout()
	invalid := 0

	for _, path := range args {
		res, data, err := validateFile(path, v.GetString("format"))
		if err != nil {
			return err
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash && !v.GetBool("force") {
			slog.Info("evaluation file unchanged, skipping", "path", path)
			continue
		}

		if err := report.Validation(out, path, res); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if !res.Valid {
			invalid++
			continue
		}

		ev, err := normalizer.Normalize(res)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", path, err)
		}
		saved, err := db.SaveEvaluation(ev)
		if err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported evaluation", "path", path, "id", saved.ID, "questions", len(saved.Questions))
		fmt.Fprintf(out, "%s: imported as %s\n", path, saved.ID)
	}

	if invalid > 0 {
		return errInvalidDocuments
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	list, err := db.ListEvaluations(v.GetString("professor-id"))
	if err != nil {
		return fmt.Errorf("list evaluations: %w", err)
	}
	return report.Evaluations(cmd.OutOrStdout(), list)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	evaluations, err := db.ExportEvaluations()
	if err != nil {
		return fmt.Errorf("export evaluations: %w", err)
	}

	data, err := json.MarshalIndent(evaluations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported evaluations", "count", len(evaluations), "output", outPath)
	return nil
}

func runClassAdd(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	subject := strings.TrimSpace(v.GetString("subject"))
	professorID := strings.TrimSpace(v.GetString("professor-id"))
	if subject == "" || professorID == "" {
		return fmt.Errorf("--subject and --professor-id are required")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	c, err := db.CreateClass(model.Class{
		Name:        strings.TrimSpace(args[0]),
		Subject:     subject,
		ProfessorID: professorID,
	})
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), c.ID)
	return nil
}

func runClassList(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	classes, err := db.ListClasses(v.GetString("professor-id"))
	if err != nil {
		return fmt.Errorf("list classes: %w", err)
	}
	return report.Classes(cmd.OutOrStdout(), classes)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ah-its-andy/webpconv/internal/converter"
	"github.com/ah-its-andy/webpconv/internal/db"
	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/queue"
	"github.com/ah-its-andy/webpconv/internal/result"
	"github.com/ah-its-andy/webpconv/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	convertOut       string
	convertFormat    string
	convertQuality   int
	convertConverter string
	convertProgress  bool
	convertHistory   bool
)

var errBatchFailed = errors.New("no image was converted")

var convertCmd = &cobra.Command{
	Use:   "convert --out DIR [flags] <path>...",
	Short: "Convert images in one batch",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "destination folder")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "batch format: WEBP, JPG, PNG, TIFF or BMP")
	convertCmd.Flags().IntVarP(&convertQuality, "quality", "q", 0, "batch quality: 100, 90, 80, 75 or 50")
	convertCmd.Flags().StringVarP(&convertConverter, "converter", "c", "", "conversion backend (overrides CONVERTER)")
	convertCmd.Flags().BoolVar(&convertProgress, "progress", true, "show a progress view while converting")
	convertCmd.Flags().BoolVar(&convertHistory, "history", true, "record the batch in the run history")
	_ = convertCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("converter") {
		cfg.Converter = convertConverter
	}

	board := result.NewBoard(cfg.NoticeDuration)
	session := queue.NewSession(queue.WithBoard(board))
	if err := applyBatchFlags(session, convertFormat, convertQuality); err != nil {
		return err
	}
	added, err := session.AddDropped(args)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return fmt.Errorf("none of the %d paths is a supported image", len(args))
	}

	out, err := filepath.Abs(convertOut)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	conv, err := newRegistry(cfg, nil).Resolve(cfg.Converter)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, tui.RenderQueue(session.Entries(), session.Override()))

	job, err := session.Begin(out)
	if err != nil {
		return err
	}

	var conn *gorm.DB
	runID := uuid.NewString()
	if convertHistory {
		conn = openHistory(cfg.DBPath, cfg.LogLevel)
		if conn != nil {
			defer db.Close(conn)
			run := &db.ConversionRun{
				ID:          runID,
				Destination: out,
				Converter:   conv.Name(),
				Requested:   job.Requested(),
				Files:       db.FilesJSON(job.Request().Files),
			}
			if err := db.CreateRun(conn, run); err != nil {
				log.Printf("failed to record run: %v", err)
			}
		}
	}

	outcome, runErr := runJob(cmd, job, conv, out)
	if runErr != nil {
		log.Printf("conversion failed: %v", runErr)
	}
	if conn != nil {
		msg := ""
		if runErr != nil {
			msg = runErr.Error()
		}
		if err := db.FinishRun(conn, runID, outcome.Processed, string(outcome.Status()), msg); err != nil {
			log.Printf("failed to finish run: %v", err)
		}
	}

	if n, ok := board.Current(); ok {
		fmt.Fprintln(os.Stdout, tui.RenderNotice(n))
	}
	if outcome.Status() == result.StatusError {
		return errBatchFailed
	}
	return nil
}

// runJob runs the batch, showing the progress view on stderr when enabled.
func runJob(cmd *cobra.Command, job *queue.Job, conv converter.Converter, out string) (result.Outcome, error) {
	if !convertProgress {
		return job.Run(cmd.Context(), conv)
	}

	names := make([]string, 0, job.Requested())
	for _, f := range job.Request().Files {
		names = append(names, filepath.Base(f.SourcePath))
	}
	done := make(chan result.Outcome, 1)
	program := tea.NewProgram(tui.NewModel(names, out, done), tea.WithOutput(os.Stderr), tea.WithInput(nil))
	uiDone := make(chan struct{})
	go func() {
		if _, err := program.Run(); err != nil {
			log.Printf("progress view: %v", err)
		}
		close(uiDone)
	}()

	outcome, err := job.Run(cmd.Context(), conv)
	done <- outcome
	<-uiDone
	return outcome, err
}

func applyBatchFlags(session *queue.Session, format string, quality int) error {
	f, err := imagefmt.ParseFormat(format)
	if err != nil {
		return err
	}
	q, err := imagefmt.ParseQuality(quality)
	if err != nil {
		return err
	}
	if err := session.SetBatchFormat(f); err != nil {
		return err
	}
	return session.SetBatchQuality(q)
}

// openHistory opens the run history; a failure only disables recording.
func openHistory(path, level string) *gorm.DB {
	conn, err := db.Init(path, level)
	if err != nil {
		log.Printf("run history disabled: %v", err)
		return nil
	}
	return conn
}

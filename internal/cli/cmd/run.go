package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/truvi/booking-etl/consumer"
	"github.com/truvi/booking-etl/internal/cli/runner"
	"github.com/truvi/booking-etl/internal/config"
	"github.com/truvi/booking-etl/internal/db"
	"github.com/truvi/booking-etl/internal/logging"
	"github.com/truvi/booking-etl/pkg/pipeline"
	"github.com/truvi/booking-etl/processor"
	"github.com/truvi/booking-etl/source"
)

const logDir = "logs"

var runCmd = &cobra.Command{
	Use:   "run [config file]",
	Short: "Run the booking ingestion pipeline",
	Long:  "Truncate-load the bookings API into data.raw_data and export data.final_table",
	Args:  cobra.ExactArgs(1),
	Example: `  pipeline run config.yaml
  pipeline run config/production.yaml`,
	RunE:         runPipeline,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	configFile := args[0]

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", configFile)
	}

	// Logger before config so a bad config still lands in the run log.
	logger, closeLogger, err := logging.New(logDir, viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer closeLogger()

	cfg, err := config.Load(logger, configFile)
	if err != nil {
		return err
	}

	fmt.Println(color.GreenString("Starting booking pipeline from %s", configFile))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	database, err := sql.Open(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	gateway := db.New(database, logger)
	if err := gateway.Ping(ctx); err != nil {
		return fmt.Errorf("validating database connection: %w", err)
	}
	logger.Info("connection to database valid")

	client, err := source.NewClient(cfg.API.BaseURL, logger)
	if err != nil {
		return err
	}
	adapter := source.NewBookingSourceAdapter(client, cfg.API.Filters, logger)
	validator := processor.NewValidateBookings(cfg.TableValues.DateColumns, logger)
	writer := consumer.NewSaveToPostgreSQL(database, "data", "raw_data", logger)
	exporter := consumer.NewFinalTableExporter(gateway, cfg.Output.Dir, cfg.Output.Excel, logger)

	pipeline.BuildProcessorChain(logger,
		[]processor.Processor{validator},
		[]processor.Processor{writer})
	adapter.Subscribe(validator)

	r := runner.New(gateway, adapter, exporter, logger)
	if err := r.Run(ctx); err != nil {
		logger.Error("processing failed", zap.Error(err))
		return fmt.Errorf("pipeline failed: %w", err)
	}

	logger.Info("run complete")
	fmt.Println(color.GreenString("Pipeline completed successfully"))
	return nil
}

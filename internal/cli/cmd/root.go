package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "pipeline",
		Short: "Booking ETL pipeline CLI",
		Long:  color.CyanString(`Booking ETL - paginate the bookings API into Postgres and export the final table`),
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.AutomaticEnv()
	viper.SetEnvPrefix("BOOKING_ETL")
}

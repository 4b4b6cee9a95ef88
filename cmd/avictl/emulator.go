package main

import (
	"context"
	"net/http"
	"time"

	"github.com/func/avictl/controller/emulator"
	"github.com/func/avictl/storage"
	"github.com/func/avictl/storage/kvbackend"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var defaultEmulatorAddress = "127.0.0.1:9443"

var emulatorCommand = &cobra.Command{
	Use:   "emulator",
	Short: "Run a local controller emulator",
	Long: `Emulator serves the controller object API over plain HTTP, for trying out
desired-state files. Objects are kept in a bbolt database.

Log in with the --username and --password flags given to the emulator.
Prometheus metrics are served on /metrics.`,
	Args: args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		addr, _ := f.GetString("address")
		db, _ := f.GetString("db")
		username, _ := f.GetString("username")
		password, _ := f.GetString("password")
		if username == "" || password == "" {
			return usageError{cmd: cmd, err: errors.New("--username and --password are required")}
		}

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		var bolt *kvbackend.Bolt
		if db == "" {
			bolt, err = kvbackend.NewBolt()
		} else {
			bolt, err = kvbackend.NewBoltWithFile(db)
		}
		if err != nil {
			return errors.Wrap(err, "open database")
		}
		defer func() { _ = bolt.Close() }()

		reg := registry()
		emu := emulator.New(emulator.Config{
			Store:    &storage.KV{Backend: bolt},
			Username: username,
			Password: password,
			WriteOnly: func(typ string) []string {
				if s := reg.Schema(typ); s != nil {
					return s.SensitiveFields()
				}
				return nil
			},
			Logger: logger.Named("emulator"),
		})

		srv := &http.Server{
			Addr:              addr,
			Handler:           emu,
			ReadHeaderTimeout: 10 * time.Second,
		}
		ctx, stop := signalContext(context.Background(), logger)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("Starting emulator", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	f := emulatorCommand.Flags()
	f.String("address", defaultEmulatorAddress, "Address to listen on")
	f.String("db", "", "Database file. Defaults to ~/.avictl/emulator.db")

	cmd.AddCommand(emulatorCommand)
}

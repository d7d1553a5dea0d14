package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleberrangel/workscan-api/internal/config"
	"github.com/cleberrangel/workscan-api/internal/database"
	"github.com/cleberrangel/workscan-api/internal/migration"
)

func newMigrateCommand() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrações do banco",
		Long: `Aplica as migrações pendentes do Task Store usando DATABASE_URL ou
DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME/DB_SSLMODE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := database.Connect(ctx, database.Config{DSN: config.LoadDatabase().DSN()})
			if err != nil {
				return fmt.Errorf("conectar ao banco: %w", err)
			}
			defer database.Close(db)

			m := migration.NewMigrator(db)
			if rollback {
				if err := m.Rollback(ctx); err != nil {
					return err
				}
			} else if err := m.Run(ctx); err != nil {
				return err
			}

			version, err := m.CurrentVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Versão do schema: %d\n", version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "Reverte a última migração")
	return cmd
}

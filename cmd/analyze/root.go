package main

import (
	"github.com/spf13/cobra"

	"github.com/cleberrangel/workscan-api/internal/logger"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "WorkScan - avaliação de potencial de automação",
		Long: `analyze executa o mesmo pipeline da API sobre um arquivo local de tarefas,
sem cota por cliente nem verificação anti-bot, e imprime o resumo de ROI em JSON.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logLevel := cmd.PersistentFlags().String("log-level", "warn", "Nível de log (debug, info, warn, error)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger.Init(*logLevel, false)
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newMigrateCommand())

	return cmd
}
